package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Metadata is the flat key/value record stored alongside each chunk.
// Values should be strings, numbers, or booleans.
type Metadata map[string]interface{}

// Clone returns a shallow copy of the metadata
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge copies every key of other into m, overwriting existing keys
func (m Metadata) Merge(other map[string]interface{}) Metadata {
	for k, v := range other {
		m[k] = v
	}
	return m
}

// String returns the value at key as a string, or def when absent
func (m Metadata) String(key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return def
	}
}

// Int returns the value at key as an int, or def when absent or not numeric
func (m Metadata) Int(key string, def int) int {
	switch val := m[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case float32:
		return int(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return int(f)
		}
	case string:
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

// Tags splits the comma-joined "tags" value into a trimmed list
func (m Metadata) Tags() []string {
	return SplitTags(m.String("tags", ""))
}

// SplitTags splits a comma-joined tag string, dropping empty entries
func SplitTags(joined string) []string {
	tags := make([]string, 0)
	for _, tag := range strings.Split(joined, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// DecodeMetadata parses a JSON object into Metadata keeping numbers as json.Number
func DecodeMetadata(data []byte) (Metadata, error) {
	meta := Metadata{}
	if len(data) == 0 {
		return meta, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return nil, err
	}
	return meta, nil
}
