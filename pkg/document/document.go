// Package document implements the self-describing nested-map encoding
// used for the state and conn-info records this agent publishes to the
// DCS (§6). The dbid and timeline records are stored as plain strings,
// not as documents.
package document

import (
	"bytes"
	"sort"

	"github.com/lindb/common/pkg/encoding"
)

// Document is a nested map of scalar leaves (strings, numbers, booleans,
// null) and further maps. Key order is never significant to callers;
// Bytes sorts keys to make change detection stable regardless of Go's
// map iteration order.
type Document map[string]any

// Clone returns a deep copy, needed for reliable change detection when a
// caller mutates the map it passed in after handing it to Update.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return t.Clone()
	case map[string]any:
		return Document(t).Clone()
	case map[string]Problem:
		out := make(map[string]Problem, len(t))
		for k, p := range t {
			out[k] = p
		}
		return out
	default:
		return t
	}
}

// Problem is the value type stored under the state document's
// health_problems key (§3).
type Problem struct {
	Reason       string `json:"reason"`
	CanBeReplica bool   `json:"can_be_replica"`
}

// Merge copies every key in other into d, overwriting existing keys.
func (d Document) Merge(other Document) {
	for k, v := range other {
		d[k] = v
	}
}

// DeepEqual compares two documents via their stable-sorted encoding,
// per spec.md §8's "repeatedly calling update_state with equal inputs
// produces exactly one DCS write" requirement.
func DeepEqual(a, b Document) bool {
	return bytes.Equal(mustBytes(a), mustBytes(b))
}

// Bytes renders the document as a stable byte sequence: a JSON object
// whose top-level keys are sorted before encoding. Nested maps rely on
// encoding/json's own (stable) map key ordering.
func (d Document) Bytes() []byte {
	return mustBytes(d)
}

func mustBytes(d Document) []byte {
	if d == nil {
		return []byte("null")
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encoding.JSONMarshal(k))
		buf.WriteByte(':')
		buf.Write(encoding.JSONMarshal(d[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Unmarshal decodes a serialized document produced by Bytes.
func Unmarshal(data []byte) (Document, error) {
	doc := Document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := encoding.JSONUnmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
