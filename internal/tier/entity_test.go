// AngelaMos | 2026
// entity_test.go

package tier

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFeaturesUnmarshalAcceptsScalars(t *testing.T) {
	raw := `{"tic_tac_toe": true, "pdf_word_limit": 100, "max_projects": -1, "memory_match": null}`

	var f Features
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if b, ok := f["tic_tac_toe"].Bool(); !ok || !b {
		t.Fatalf("expected tic_tac_toe true, got %v", f["tic_tac_toe"])
	}
	if n, ok := f["pdf_word_limit"].Number(); !ok || n != 100 {
		t.Fatalf("expected pdf_word_limit 100, got %v", f["pdf_word_limit"])
	}
	if !f["max_projects"].IsUnlimited() {
		t.Fatal("expected negative number to be unlimited")
	}
	if !f["memory_match"].IsUnlimited() {
		t.Fatal("expected null to be unlimited")
	}
	if f["pdf_word_limit"].IsUnlimited() {
		t.Fatal("expected non-negative number to be a ceiling")
	}
}

func TestFeaturesUnmarshalRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		key  string
	}{
		{name: "nested object", raw: `{"a": {"b": true}}`, key: "a"},
		{name: "array", raw: `{"a": [1, 2]}`, key: "a"},
		{name: "string", raw: `{"a": "yes"}`, key: "a"},
		{name: "fractional limit", raw: `{"a": 0.5}`, key: "a"},
		{name: "empty key", raw: `{"": true}`, key: ""},
		{name: "not an object", raw: `[true]`},
		{name: "scalar", raw: `true`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var f Features
			err := json.Unmarshal([]byte(tc.raw), &f)
			if err == nil {
				t.Fatalf("expected error for %s", tc.raw)
			}

			var fmErr *FeatureMapError
			if !errors.As(err, &fmErr) {
				t.Fatalf("expected FeatureMapError, got %T: %v", err, err)
			}
			if fmErr.Key != tc.key {
				t.Fatalf("expected key %q, got %q", tc.key, fmErr.Key)
			}
		})
	}
}

func TestFeaturesValueAndScan(t *testing.T) {
	in := Features{
		"tic_tac_toe":    Bool(true),
		"pdf_word_limit": Number(200),
		"unlimited":      Null(),
	}

	v, err := in.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var out Features
	if err := out.Scan(v); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 features, got %d", len(out))
	}

	raw, ok := v.([]byte)
	if !ok {
		t.Fatalf("expected []byte value, got %T", v)
	}
	var fromString Features
	if err := fromString.Scan(string(raw)); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if n, _ := fromString["pdf_word_limit"].Number(); n != 200 {
		t.Fatalf("expected 200, got %v", n)
	}

	var empty Features
	if err := empty.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", empty)
	}
}

func TestFeatureValueMarshal(t *testing.T) {
	f := Features{"a": Bool(false), "b": Number(1.5), "c": Null()}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"a":false,"b":1.5,"c":null}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}
}
