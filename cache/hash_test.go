package cache

import (
	"encoding/hex"
	"testing"
)

func TestHash_MapOrder(t *testing.T) {
	a := map[string]any{"posts_per_page": 10, "post_type": "post", "tax_query": map[string]any{"relation": "AND", "0": "x"}}
	b := map[string]any{"tax_query": map[string]any{"0": "x", "relation": "AND"}, "post_type": "post", "posts_per_page": 10}

	ha, err := Hash(a)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hb, err := Hash(b)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if ha != hb {
		t.Errorf("hashes differ for equal maps: %s != %s", ha, hb)
	}
	if _, err := hex.DecodeString(ha); err != nil || len(ha) != 64 {
		t.Errorf("Hash() = %q, want 64 hex characters", ha)
	}
}

func TestHash_Distinguishes(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"slice order", []any{1, 2, 3}, []any{3, 2, 1}},
		{"value", map[string]any{"p": 1}, map[string]any{"p": 2}},
		{"type", map[string]any{"p": 1}, map[string]any{"p": "1"}},
		{"nil vs empty", nil, map[string]any{}},
		{"typed slice", []int64{1, 2}, []int64{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha, err := Hash(tt.a)
			if err != nil {
				t.Fatalf("Hash(a) error = %v", err)
			}
			hb, err := Hash(tt.b)
			if err != nil {
				t.Fatalf("Hash(b) error = %v", err)
			}
			if ha == hb {
				t.Errorf("Hash(%v) == Hash(%v)", tt.a, tt.b)
			}
		})
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"sorted keys", map[string]any{"b": 1, "a": []any{"x", nil}}, `{"a":["x",null],"b":1}`},
		{"nested", map[string]any{"z": map[string]any{"y": true, "x": false}}, `{"z":{"x":false,"y":true}}`},
		{"scalar", "s", `"s"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.in)
			if err != nil {
				t.Fatalf("Canonicalize() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHash_Unencodable(t *testing.T) {
	if _, err := Hash(map[string]any{"f": func() {}}); err == nil {
		t.Fatal("Hash() succeeded for a func value")
	}
}
