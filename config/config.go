// Package config loads process configuration from a YAML file with FOLIO_*
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/jacentio/folio/store"
	"github.com/jacentio/folio/store/cqlstore"
	"github.com/jacentio/folio/store/dynamostore"
)

// Backend names the storage a process runs against.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendScylla   Backend = "scylla"
	BackendDynamoDB Backend = "dynamodb"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FOLIO_"

// Config is the configuration of a folio process.
type Config struct {
	// Backend selects the store session.
	// Default: memory
	Backend Backend `yaml:"backend"`

	Store   store.Config       `yaml:"store"`
	Scylla  cqlstore.Config    `yaml:"scylla"`
	Dynamo  dynamostore.Config `yaml:"dynamo"`
	Log     Log                `yaml:"log"`
	Metrics Metrics            `yaml:"metrics"`
}

// Log configures the process logger.
type Log struct {
	// Level is a zerolog level name.
	// Default: info
	Level string `yaml:"level"`

	// Pretty writes human readable console output instead of JSON.
	Pretty bool `yaml:"pretty"`
}

// Metrics configures store instrumentation.
type Metrics struct {
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	// Default: folio
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Backend: BackendMemory,
		Store:   store.DefaultConfig(),
		Log:     Log{Level: "info"},
		Metrics: Metrics{Namespace: "folio"},
	}
}

// Load reads the YAML file at path, if path is not empty, over the defaults
// and then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports settings the selected backend cannot start with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendDynamoDB:
	case BackendScylla:
		if len(c.Scylla.Hosts) == 0 {
			return errors.New("config: scylla backend needs at least one host")
		}
		if c.Scylla.Keyspace == "" {
			return errors.New("config: scylla backend needs a keyspace")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	return nil
}

// applyEnv overrides fields from FOLIO_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	env.str("BACKEND", (*string)(&c.Backend))

	env.duration("STORE_READ_TIMEOUT", &c.Store.ReadTimeout)
	env.duration("STORE_WRITE_TIMEOUT", &c.Store.WriteTimeout)
	env.integer("STORE_SCAN_DAYS", &c.Store.ScanDays)
	env.integer("STORE_MAX_PAGE_SIZE", &c.Store.MaxPageSize)
	env.boolean("STORE_BYPASS_CACHE", &c.Store.BypassCache)

	env.list("SCYLLA_HOSTS", &c.Scylla.Hosts)
	env.str("SCYLLA_KEYSPACE", &c.Scylla.Keyspace)
	env.str("SCYLLA_USERNAME", &c.Scylla.Username)
	env.str("SCYLLA_PASSWORD", &c.Scylla.Password)
	env.str("SCYLLA_CONSISTENCY", &c.Scylla.Consistency)
	env.duration("SCYLLA_CONNECT_TIMEOUT", &c.Scylla.ConnectTimeout)

	env.str("DYNAMO_REGION", &c.Dynamo.Region)
	env.str("DYNAMO_ENDPOINT", &c.Dynamo.Endpoint)
	env.str("DYNAMO_TABLE_PREFIX", &c.Dynamo.TablePrefix)

	env.str("LOG_LEVEL", &c.Log.Level)
	env.boolean("LOG_PRETTY", &c.Log.Pretty)

	env.boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	env.str("METRICS_NAMESPACE", &c.Metrics.Namespace)

	return env.err
}

// envReader keeps the first parse error so overrides read as a flat list.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	return e.lookup(EnvPrefix + name)
}

func (e *envReader) fail(name string, err error) {
	e.err = fmt.Errorf("config: %s%s: %w", EnvPrefix, name, err)
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = n
}

func (e *envReader) boolean(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = b
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = d
}

// Logger builds a logger writing to w. A level that does not parse falls
// back to info.
func (l Log) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil || l.Level == "" {
		level = zerolog.InfoLevel
	}
	if l.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
