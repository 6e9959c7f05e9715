package cart

import (
	"encoding/json"
	"testing"
)

func TestOptionsPreserveInsertionOrder(t *testing.T) {
	opts := Opts("size", "XL", "color", "red", "engraving", "hello")

	if len(opts) != 3 {
		t.Fatalf("expected 3 options, got %d", len(opts))
	}
	if opts[0].Key != "size" || opts[1].Key != "color" || opts[2].Key != "engraving" {
		t.Errorf("insertion order not preserved: %v", opts)
	}
}

func TestOptionsSetReplacesInPlace(t *testing.T) {
	opts := Opts("size", "XL", "color", "red")
	opts = opts.Set("size", "L")

	if len(opts) != 2 {
		t.Fatalf("expected 2 options after replace, got %d", len(opts))
	}
	if opts[0].Key != "size" || opts[0].Value != "L" {
		t.Errorf("Set did not replace in place: %v", opts)
	}

	opts = opts.Set("gift", "yes")
	if len(opts) != 3 || opts[2].Key != "gift" {
		t.Errorf("Set did not append new key: %v", opts)
	}
}

func TestOptionsGetAndValue(t *testing.T) {
	opts := Opts("color", "red")

	if v, ok := opts.Get("color"); !ok || v != "red" {
		t.Errorf("Get(color) = %q, %v", v, ok)
	}
	if _, ok := opts.Get("size"); ok {
		t.Error("Get(size) should report absence")
	}
	if v := opts.Value("size"); v != "" {
		t.Errorf("Value(size) = %q, want empty", v)
	}
}

func TestOptionsCloneIsIndependent(t *testing.T) {
	opts := Opts("color", "red")
	dup := opts.Clone()
	dup = dup.Set("color", "blue")

	if opts.Value("color") != "red" {
		t.Errorf("mutating the clone changed the original: %v", opts)
	}
}

func TestOptionsJSONRoundTrip(t *testing.T) {
	opts := Opts("size", "XL", "color", "red")

	data, err := json.Marshal(opts)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"size":"XL","color":"red"}` {
		t.Errorf("unexpected encoding: %s", data)
	}

	var decoded Options
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Key != "size" || decoded[1].Key != "color" {
		t.Errorf("round trip lost ordering: %v", decoded)
	}
}

func TestOptionsUnmarshalCoercesScalars(t *testing.T) {
	var opts Options
	if err := json.Unmarshal([]byte(`{"count":2,"gift":true,"note":null}`), &opts); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if opts.Value("count") != "2" {
		t.Errorf("number not coerced: %q", opts.Value("count"))
	}
	if opts.Value("gift") != "true" {
		t.Errorf("bool not coerced: %q", opts.Value("gift"))
	}
}

func TestOptionsCanonicalIgnoresOrder(t *testing.T) {
	a := Opts("size", "XL", "color", "red")
	b := Opts("color", "red", "size", "XL")

	if a.canonical() != b.canonical() {
		t.Errorf("canonical form depends on insertion order: %q vs %q", a.canonical(), b.canonical())
	}
	if a.canonical() == Opts("color", "blue", "size", "XL").canonical() {
		t.Error("different values must not share a canonical form")
	}
}
