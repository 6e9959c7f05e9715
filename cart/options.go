package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Option is one key/value pair attached to an item or fee.
type Option struct {
	Key   string
	Value string
}

// Options is an ordered key/value bag. Insertion order is preserved for
// display; the canonical form used for identity hashing sorts by key so the
// order options were supplied in never changes a row's identity.
type Options []Option

// Opts builds an Options bag from alternating key/value pairs.
func Opts(pairs ...string) Options {
	opts := make(Options, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		opts = append(opts, Option{Key: pairs[i], Value: pairs[i+1]})
	}
	return opts
}

// Get returns the value for key and whether it is present.
func (o Options) Get(key string) (string, bool) {
	for _, opt := range o {
		if opt.Key == key {
			return opt.Value, true
		}
	}
	return "", false
}

// Value returns the value for key, or the empty string.
func (o Options) Value(key string) string {
	v, _ := o.Get(key)
	return v
}

// Set replaces the value for key in place, or appends a new pair.
func (o Options) Set(key, value string) Options {
	for i, opt := range o {
		if opt.Key == key {
			o[i].Value = value
			return o
		}
	}
	return append(o, Option{Key: key, Value: value})
}

// Clone returns an independent copy.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	copy(out, o)
	return out
}

// canonical returns the key-sorted form used as hashing input.
func (o Options) canonical() string {
	if len(o) == 0 {
		return ""
	}

	sorted := o.Clone()
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var b strings.Builder
	for _, opt := range sorted {
		b.WriteString(opt.Key)
		b.WriteByte('=')
		b.WriteString(opt.Value)
		b.WriteByte(';')
	}
	return b.String()
}

// MarshalJSON renders the bag as a JSON object in insertion order.
func (o Options) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(opt.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(opt.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object while preserving key order. Scalar
// non-string values are accepted and stored as their textual form.
func (o *Options) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("options: expected object, got %v", tok)
	}

	opts := Options{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("options: expected string key, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		var value string
		switch v := valTok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = fmt.Sprintf("%t", v)
		case nil:
			value = ""
		default:
			return fmt.Errorf("options: unsupported value for key %q", key)
		}

		opts = append(opts, Option{Key: key, Value: value})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}

	*o = opts
	return nil
}
