package shard

import (
	"encoding/binary"
	"fmt"

	"github.com/dreamware/docshaper/internal/docerr"
	"github.com/dreamware/docshaper/internal/shaper"
	"github.com/dreamware/docshaper/internal/value"
)

// CollectionShard is one collection's slice of one shard: the byte-level
// Shard this package already provides for raw storage, plus the
// per-collection Shaper that shapes documents into that storage. Keys
// are minted by internal/router before a document ever reaches a
// shard (default sharding hashes _key, so it must exist before routing
// does), so CollectionShard only ever stores documents under an
// already-final key.
type CollectionShard struct {
	store  *Shard
	shaper *shaper.Shaper
}

// NewCollectionShard creates a CollectionShard backed by a fresh
// in-memory byte store and a fresh Shaper for collection.
func NewCollectionShard(id int, collection string) *CollectionShard {
	return &CollectionShard{
		store:  NewShard(id, true),
		shaper: shaper.New(collection),
	}
}

// wireEncode serializes a ShapedDocument to bytes for the byte-level
// store: an 8-byte big-endian ShapeId prefix followed by the shaped
// bytes, mirroring the encode.go convention of fixed-width length/id
// prefixes throughout this module's wire format.
func wireEncode(doc shaper.ShapedDocument) []byte {
	buf := make([]byte, 8+len(doc.Bytes))
	binary.BigEndian.PutUint64(buf[:8], uint64(doc.ShapeId))
	copy(buf[8:], doc.Bytes)
	return buf
}

func wireDecode(raw []byte) (shaper.ShapedDocument, error) {
	if len(raw) < 8 {
		return shaper.ShapedDocument{}, docerr.New(docerr.ShaperFailed, "stored document too short (%d bytes)", len(raw))
	}
	shapeID := shaper.ShapeId(binary.BigEndian.Uint64(raw[:8]))
	return shaper.ShapedDocument{ShapeId: shapeID, Bytes: raw[8:]}, nil
}

// Put shapes and stores doc under the already-final key.
func (c *CollectionShard) Put(key string, doc value.Value) error {
	shaped, err := c.shaper.Encode(doc, true)
	if err != nil {
		return err
	}
	if err := c.store.Put(key, wireEncode(shaped)); err != nil {
		return docerr.New(docerr.ShaperFailed, "storing document %s: %v", key, err)
	}
	return nil
}

// Get retrieves and decodes the document stored under key.
func (c *CollectionShard) Get(key string) (value.Value, error) {
	raw, err := c.store.Get(key)
	if err != nil {
		return value.Value{}, docerr.New(docerr.NotFound, "document %s not found", key)
	}
	doc, err := wireDecode(raw)
	if err != nil {
		return value.Value{}, err
	}
	return c.shaper.Decode(doc)
}

// Delete removes key, reporting NotFound if it was never present so the
// HTTP layer can forward a proper 404 rather than a bare 204 (spec §4.3
// forwards the shard's own status verbatim on a fan-out delete).
func (c *CollectionShard) Delete(key string) error {
	if _, err := c.store.Get(key); err != nil {
		return docerr.New(docerr.NotFound, "document %s not found", key)
	}
	return c.store.Delete(key)
}

// FieldValue resolves path against the document stored under key using
// the collection's accessor cache, returning the resolved field as a
// plain string for the router's sharding-attribute hashing. Non-string
// fields are rendered via their JSON form.
func (c *CollectionShard) FieldValue(key string, path shaper.AttributePath) (string, bool) {
	raw, err := c.store.Get(key)
	if err != nil {
		return "", false
	}
	doc, err := wireDecode(raw)
	if err != nil {
		return "", false
	}

	shapeID, bytes, ok := c.shaper.Get(doc, path)
	if !ok {
		return "", false
	}
	sub := shaper.ShapedDocument{ShapeId: shapeID, Bytes: bytes}
	v, err := c.shaper.Decode(sub)
	if err != nil {
		return "", false
	}
	return stringify(v), true
}

func stringify(v value.Value) string {
	switch v.Kind {
	case value.KindString:
		return v.Str
	case value.KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case value.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		data, err := value.ToJSON(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
