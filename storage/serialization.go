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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/minutia/core"
)

// IndexRecordMUS is the MUS serializer of core.IndexRecord.
//
// Layout: ID, Namespace, vector length and components, then the metadata
// fields ProjectName, Department, Date, ChunkIndex and Text.
var IndexRecordMUS = indexRecordMUS{}

type indexRecordMUS struct{}

func (indexRecordMUS) Marshal(r core.IndexRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.ID, bs)
	n += ord.String.Marshal(r.Namespace, bs[n:])
	n += varint.Int.Marshal(len(r.Vector), bs[n:])
	for _, f := range r.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	n += ord.String.Marshal(r.Metadata.ProjectName, bs[n:])
	n += ord.String.Marshal(r.Metadata.Department, bs[n:])
	n += ord.String.Marshal(r.Metadata.Date, bs[n:])
	n += varint.Int.Marshal(r.Metadata.ChunkIndex, bs[n:])
	n += ord.String.Marshal(r.Metadata.Text, bs[n:])
	return n
}

func (indexRecordMUS) Unmarshal(bs []byte) (r core.IndexRecord, n int, err error) {
	var n1 int
	if r.ID, n1, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	n += n1
	if r.Namespace, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1

	var length int
	if length, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if length < 0 || length*4 > len(bs)-n {
		err = fmt.Errorf("vector length %d exceeds remaining %d bytes", length, len(bs)-n)
		return
	}
	r.Vector = make([]float32, length)
	for i := range r.Vector {
		if r.Vector[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return
		}
		n += n1
	}

	if r.Metadata.ProjectName, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if r.Metadata.Department, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if r.Metadata.Date, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if r.Metadata.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	if r.Metadata.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += n1
	return
}

func (indexRecordMUS) Size(r core.IndexRecord) (size int) {
	size = ord.String.Size(r.ID)
	size += ord.String.Size(r.Namespace)
	size += varint.Int.Size(len(r.Vector))
	for _, f := range r.Vector {
		size += raw.Float32.Size(f)
	}
	size += ord.String.Size(r.Metadata.ProjectName)
	size += ord.String.Size(r.Metadata.Department)
	size += ord.String.Size(r.Metadata.Date)
	size += varint.Int.Size(r.Metadata.ChunkIndex)
	size += ord.String.Size(r.Metadata.Text)
	return
}

// MarshalIndexRecord serializes an IndexRecord to bytes.
func MarshalIndexRecord(record *core.IndexRecord) []byte {
	buf := make([]byte, IndexRecordMUS.Size(*record))
	IndexRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalIndexRecord deserializes an IndexRecord from bytes.
func UnmarshalIndexRecord(data []byte) (*core.IndexRecord, error) {
	record, _, err := IndexRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}
