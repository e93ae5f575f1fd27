// Package cqlstore implements store.Session over gocql for ScyllaDB and
// Cassandra clusters.
package cqlstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/gocql/gocql"

	"github.com/jacentio/folio/column"
	"github.com/jacentio/folio/store"
)

// Config holds cluster connection settings.
type Config struct {
	// Hosts lists the contact points.
	Hosts []string `yaml:"hosts"`

	// Keyspace every table lives in.
	Keyspace string `yaml:"keyspace"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Consistency is the read/write consistency level name.
	// Default: LOCAL_QUORUM
	Consistency string `yaml:"consistency"`

	// ConnectTimeout bounds the initial connection to each host.
	// Default: 5s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Session is a store.Session backed by a gocql session.
type Session struct {
	session *gocql.Session
}

// Open connects to the cluster described by cfg.
func Open(cfg Config) (*Session, error) {
	if len(cfg.Hosts) == 0 {
		return nil, errors.New("cqlstore: no hosts configured")
	}
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.ConnectTimeout = 5 * time.Second
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Consistency != "" {
		c, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
		if err != nil {
			return nil, fmt.Errorf("cqlstore: %w", err)
		}
		cluster.Consistency = c
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cqlstore: connect: %w", err)
	}
	return &Session{session: sess}, nil
}

// Wrap adapts an existing gocql session.
func Wrap(s *gocql.Session) *Session {
	return &Session{session: s}
}

func (s *Session) Query(ctx context.Context, stmt *store.Statement) ([]store.Row, error) {
	q, args, err := bind(stmt)
	if err != nil {
		return nil, err
	}
	iter := s.session.Query(q, args...).WithContext(ctx).Iter()

	cols := iter.Columns()
	if len(cols) != len(stmt.Columns) {
		_ = iter.Close()
		return nil, fmt.Errorf("cqlstore: %s: got %d columns, selected %d", stmt.Table.Name, len(cols), len(stmt.Columns))
	}
	types := make([]column.Type, len(stmt.Columns))
	for i, name := range stmt.Columns {
		typ, ok := stmt.Table.TypeOf(name)
		if !ok {
			_ = iter.Close()
			return nil, fmt.Errorf("cqlstore: %s: undefined column %q", stmt.Table.Name, name)
		}
		types[i] = typ
	}

	var rows []store.Row
	for {
		dest := make([]any, len(cols))
		for i, c := range cols {
			// A **T destination lets gocql report nulls as nil pointers.
			dest[i] = reflect.New(reflect.TypeOf(c.TypeInfo.New())).Interface()
		}
		if !iter.Scan(dest...) {
			break
		}
		row := make(store.Row, len(dest))
		for i, d := range dest {
			p := reflect.ValueOf(d).Elem()
			if p.IsNil() {
				continue
			}
			v, err := fromNative(types[i], p.Elem().Interface())
			if err != nil {
				_ = iter.Close()
				return nil, fmt.Errorf("cqlstore: %s.%s: %w", stmt.Table.Name, stmt.Columns[i], err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (s *Session) Exec(ctx context.Context, stmt *store.Statement) (bool, error) {
	q, args, err := bind(stmt)
	if err != nil {
		return false, err
	}
	query := s.session.Query(q, args...).WithContext(ctx)
	if !stmt.Conditional() {
		if err := query.Exec(); err != nil {
			return false, classify(err)
		}
		return true, nil
	}
	applied, err := query.MapScanCAS(map[string]any{})
	if err != nil {
		return false, classify(err)
	}
	return applied, nil
}

// Batch sends stmts as one logged batch. Per-statement timeouts are dropped;
// the context bounds the whole batch.
func (s *Session) Batch(ctx context.Context, stmts []*store.Statement) error {
	b := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, stmt := range stmts {
		if stmt.Op == store.OpSelect {
			return fmt.Errorf("cqlstore: select in batch")
		}
		st := *stmt
		st.Timeout = 0
		q, args, err := bind(&st)
		if err != nil {
			return err
		}
		b.Query(q, args...)
	}
	return classify(s.session.ExecuteBatch(b))
}

// ExecDDL runs a schema statement.
func (s *Session) ExecDDL(ctx context.Context, cql string) error {
	return classify(s.session.Query(cql).WithContext(ctx).Exec())
}

func (s *Session) Close() error {
	s.session.Close()
	return nil
}

func bind(stmt *store.Statement) (string, []any, error) {
	q, vals := stmt.CQL()
	args := make([]any, len(vals))
	for i, v := range vals {
		n, err := toNative(v)
		if err != nil {
			return "", nil, fmt.Errorf("cqlstore: %s: %w", stmt.Table.Name, err)
		}
		args[i] = n
	}
	return q, args, nil
}

// classify surfaces gocql timeouts as store.ErrTimeout.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		rt *gocql.RequestErrReadTimeout
		wt *gocql.RequestErrWriteTimeout
	)
	switch {
	case errors.Is(err, gocql.ErrTimeoutNoResponse), errors.As(err, &rt), errors.As(err, &wt):
		return store.Timeout(err)
	}
	return err
}
