// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package store

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/docstream/core"
)

// MUS serializers for the Document fields. Field order below is the
// wire format; changing it breaks existing databases.
var (
	vectorSer   = ord.NewSliceSer[float32](raw.Float32)
	metadataSer = ord.NewMapSer[string, string](ord.String, ord.String)
)

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	size := ord.String.Size(string(doc.Fingerprint)) +
		ord.String.Size(doc.SourcePath) +
		ord.String.Size(doc.Contents) +
		vectorSer.Size(doc.Vector) +
		metadataSer.Size(doc.Metadata) +
		ord.String.Size(doc.Provider) +
		varint.Int.Size(doc.Confidence) +
		raw.Int64.Size(doc.StoredAt)

	bs := make([]byte, size)
	n := ord.String.Marshal(string(doc.Fingerprint), bs)
	n += ord.String.Marshal(doc.SourcePath, bs[n:])
	n += ord.String.Marshal(doc.Contents, bs[n:])
	n += vectorSer.Marshal(doc.Vector, bs[n:])
	n += metadataSer.Marshal(doc.Metadata, bs[n:])
	n += ord.String.Marshal(doc.Provider, bs[n:])
	n += varint.Int.Marshal(doc.Confidence, bs[n:])
	raw.Int64.Marshal(doc.StoredAt, bs[n:])
	return bs
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc := &core.Document{}
	n := 0

	fingerprint, size, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprint: %w", ErrSerializationFailed, err)
	}
	doc.Fingerprint = core.Fingerprint(fingerprint)
	n += size

	if doc.SourcePath, size, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: source path: %w", ErrSerializationFailed, err)
	}
	n += size

	if doc.Contents, size, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: contents: %w", ErrSerializationFailed, err)
	}
	n += size

	if doc.Vector, size, err = vectorSer.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: vector: %w", ErrSerializationFailed, err)
	}
	n += size

	if doc.Metadata, size, err = metadataSer.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: metadata: %w", ErrSerializationFailed, err)
	}
	n += size

	if doc.Provider, size, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: provider: %w", ErrSerializationFailed, err)
	}
	n += size

	if doc.Confidence, size, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: confidence: %w", ErrSerializationFailed, err)
	}
	n += size

	if doc.StoredAt, _, err = raw.Int64.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: stored at: %w", ErrSerializationFailed, err)
	}

	return doc, nil
}
