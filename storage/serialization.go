package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/blindsight-ai/blindsight/core"
)

var (
	metadataSer  = ord.NewMapSer[string, string](ord.String, ord.String)
	embeddingSer = ord.NewSliceSer[float32](raw.Float32)
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return core.ID(id), nil
}

// MarshalDocument serializes a Document to bytes.
// The timestamp is stored at microsecond precision.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, sizeDocument(doc))
	n := varint.Uint64.Marshal(uint64(doc.Id), buf)
	n += ord.String.Marshal(doc.Content, buf[n:])
	n += metadataSer.Marshal(doc.Metadata, buf[n:])
	n += embeddingSer.Marshal(doc.Embedding, buf[n:])
	varint.Int64.Marshal(doc.IngestedAt.UnixMicro(), buf[n:])
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	id, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	doc := core.Document{Id: core.ID(id)}

	var m int
	doc.Content, m, err = ord.String.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	doc.Metadata, m, err = metadataSer.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	doc.Embedding, m, err = embeddingSer.Unmarshal(data[n:])
	n += m
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	micros, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	doc.IngestedAt = time.UnixMicro(micros).UTC()

	return &doc, nil
}

func sizeDocument(doc *core.Document) int {
	n := varint.Uint64.Size(uint64(doc.Id))
	n += ord.String.Size(doc.Content)
	n += metadataSer.Size(doc.Metadata)
	n += embeddingSer.Size(doc.Embedding)
	n += varint.Int64.Size(doc.IngestedAt.UnixMicro())
	return n
}
