package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestInScopeAcceptsMarkedObjects(t *testing.T) {
	accepted := []string{
		`{"proto_ver":"aitcp-hilr-1","x":1}`,
		`{"proto_ver":"aitcp-hilr-"}`,
		"  {\"proto_ver\": \"aitcp-hilr-2\"}\n",
		`{"x": [1, 2,], "proto_ver": "aitcp-hilr-3",}`,
		"{\n  // producer note\n  \"proto_ver\": \"aitcp-hilr-4\" /* inline */\n}",
		`{"proto_ver":"aitcp-hilr-1","nested":{"proto_ver":"other"}}`,
		`{"proto_ver":"aitcp-hilr-1"} extra`,
		`{"proto_ver":"aitcp-hilr-1"} {}`,
		`{"proto_ver":"aitcp-hilr-1"}{"proto_ver":"other-1"}`,
		"/* lead */ {\"s\":\"} { \\\" ]\",\"proto_ver\":\"aitcp-hilr-1\"} trailing // x",
	}
	for _, in := range accepted {
		if !InScope([]byte(in)) {
			_, err := Inspect([]byte(in))
			t.Fatalf("InScope(%q) = false (%v), want true", in, err)
		}
	}
}

func TestInspectRejections(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", ``, ErrMalformed},
		{"garbage", `not json`, ErrMalformed},
		{"truncated", `{"proto_ver":"aitcp-hilr-1"`, ErrMalformed},
		{"second value only", `{"x":1} {"proto_ver":"aitcp-hilr-1"}`, ErrMissingMarker},
		{"array root", `[{"proto_ver":"aitcp-hilr-1"}]`, ErrNotObject},
		{"string root", `"aitcp-hilr-1"`, ErrNotObject},
		{"null root", `null`, ErrNotObject},
		{"number root", `42`, ErrNotObject},
		{"missing", `{"x":1}`, ErrMissingMarker},
		{"empty marker", `{"proto_ver":""}`, ErrMissingMarker},
		{"numeric marker", `{"proto_ver":1}`, ErrMissingMarker},
		{"null marker", `{"proto_ver":null}`, ErrMissingMarker},
		{"other protocol", `{"proto_ver":"other-1"}`, ErrMarkerMismatch},
		{"case differs", `{"proto_ver":"AITCP-HILR-1"}`, ErrMarkerMismatch},
		{"prefix without dash", `{"proto_ver":"aitcp-hilr"}`, ErrMarkerMismatch},
		{"leading space", `{"proto_ver":" aitcp-hilr-1"}`, ErrMarkerMismatch},
		{"key case", `{"Proto_Ver":"aitcp-hilr-1"}`, ErrMissingMarker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Inspect(%q) error = %v, want %v", tt.in, err, tt.want)
			}
			if InScope([]byte(tt.in)) {
				t.Fatalf("InScope(%q) = true, want false", tt.in)
			}
		})
	}
}

func TestInspectReturnsEnvelope(t *testing.T) {
	env, err := Inspect([]byte(`{"proto_ver":"aitcp-hilr-7"}`))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if env.ProtoVer != "aitcp-hilr-7" {
		t.Fatalf("ProtoVer = %q", env.ProtoVer)
	}
}

func TestInspectDoesNotMutateInput(t *testing.T) {
	in := []byte(`{"proto_ver":"aitcp-hilr-1",} // note`)
	orig := string(in)
	_ = InScope(in)
	if string(in) != orig {
		t.Fatalf("input mutated: %q", in)
	}
}

func nested(depth int) string {
	return `{"proto_ver":"aitcp-hilr-1","a":` + strings.Repeat(`{"a":`, depth-2) + `{}` + strings.Repeat("}", depth-1)
}

func TestInspectDepthLimit(t *testing.T) {
	if _, err := Inspect([]byte(nested(MaxDepth))); err != nil {
		t.Fatalf("depth %d rejected: %v", MaxDepth, err)
	}
	for _, depth := range []int{MaxDepth + 1, 101} {
		if _, err := Inspect([]byte(nested(depth))); !errors.Is(err, ErrTooDeep) {
			t.Fatalf("depth %d error = %v, want ErrTooDeep", depth, err)
		}
	}
}
