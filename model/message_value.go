package model

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/jacentio/folio/store"
)

// MessageTexts holds the text runs of one node of a document.
type MessageTexts struct {
	ID    string   `cbor:"id"`
	Texts []string `cbor:"texts"`
}

// MessageValue is the decoded payload of a message: either a flat key/text
// map or a list of per-node text runs. Exactly one of Map and Array is set.
type MessageValue struct {
	Map   map[string]string
	Array []MessageTexts
}

// CBOR major types of the two payload shapes.
const (
	majorArray = 0x80
	majorMap   = 0xa0
)

var cborEnc = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// ParseMessageValue decodes a message payload, dispatching on the CBOR
// major type of its first byte.
func ParseMessageValue(data []byte) (MessageValue, error) {
	if len(data) == 0 {
		return MessageValue{}, store.Invalid(messages.Name, "empty message")
	}
	var v MessageValue
	switch data[0] & 0xe0 {
	case majorArray:
		if err := cbor.Unmarshal(data, &v.Array); err != nil {
			return MessageValue{}, store.Invalid(messages.Name, "message: %v", err)
		}
	case majorMap:
		if err := cbor.Unmarshal(data, &v.Map); err != nil {
			return MessageValue{}, store.Invalid(messages.Name, "message: %v", err)
		}
	default:
		return MessageValue{}, store.Invalid(messages.Name, "invalid CBOR major type %#x", data[0]&0xe0)
	}
	return v, nil
}

// Marshal encodes v deterministically.
func (v MessageValue) Marshal() ([]byte, error) {
	if v.Array != nil {
		return cborEnc.Marshal(v.Array)
	}
	if v.Map == nil {
		return cborEnc.Marshal(map[string]string{})
	}
	return cborEnc.Marshal(v.Map)
}

// CollectionInfo is the descriptive text of a collection, kept in the
// collection's message.
type CollectionInfo struct {
	Title    string   `cbor:"title"`
	Summary  string   `cbor:"summary"`
	Keywords []string `cbor:"keywords,omitempty"`
	Authors  []string `cbor:"authors,omitempty"`
}

// Marshal encodes the info as a message payload.
func (ci CollectionInfo) Marshal() ([]byte, error) {
	return cborEnc.Marshal(ci)
}

// ParseCollectionInfo decodes a message payload written by Marshal.
func ParseCollectionInfo(data []byte) (CollectionInfo, error) {
	var ci CollectionInfo
	if err := cbor.Unmarshal(data, &ci); err != nil {
		return CollectionInfo{}, store.Invalid(collections.Name, "info: %v", err)
	}
	return ci, nil
}
