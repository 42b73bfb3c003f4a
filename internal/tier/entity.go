// AngelaMos | 2026
// entity.go

package tier

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

type Tier struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	PriceCents int64     `db:"price_cents"`
	Features   Features  `db:"features"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	default:
		return "null"
	}
}

// FeatureValue is one entitlement: a bool, a number, or null. Null and any
// negative number both mean unlimited.
type FeatureValue struct {
	kind Kind
	b    bool
	n    float64
}

func Null() FeatureValue {
	return FeatureValue{kind: KindNull}
}

func Bool(v bool) FeatureValue {
	return FeatureValue{kind: KindBool, b: v}
}

func Number(n float64) FeatureValue {
	return FeatureValue{kind: KindNumber, n: n}
}

func (v FeatureValue) Kind() Kind {
	return v.kind
}

func (v FeatureValue) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v FeatureValue) Number() (float64, bool) {
	return v.n, v.kind == KindNumber
}

func (v FeatureValue) IsUnlimited() bool {
	return v.kind == KindNull || (v.kind == KindNumber && v.n < 0)
}

func (v FeatureValue) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindNumber:
		return fmt.Sprintf("%g", v.n)
	default:
		return "null"
	}
}

func (v FeatureValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	default:
		return []byte("null"), nil
	}
}

func (v *FeatureValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty feature value")
	}

	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("invalid feature value %s", data)
		}
		*v = Null()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("invalid feature value %s", data)
		}
		*v = Bool(b)
	case '"':
		return fmt.Errorf("strings are not allowed, use a bool, number or null")
	case '[', '{':
		return fmt.Errorf("nested values are not allowed, use a bool, number or null")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid feature value %s", data)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("feature number must be finite")
		}
		if n != math.Trunc(n) {
			return fmt.Errorf("feature number must be a whole number")
		}
		*v = Number(n)
	}

	return nil
}

const maxFeatureKeyLength = 100

// FeatureMapError names the offending key of a malformed feature map.
type FeatureMapError struct {
	Key    string
	Reason string
}

func (e *FeatureMapError) Error() string {
	if e.Key == "" {
		return "features: " + e.Reason
	}
	return fmt.Sprintf("features.%s: %s", e.Key, e.Reason)
}

// Features is the open-ended entitlement map of a tier. Only flat
// key→scalar maps decode; anything else is rejected here so resolution
// never sees a malformed map.
type Features map[string]FeatureValue

func (f *Features) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Features{}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &FeatureMapError{Reason: "must be an object of key to bool, number or null"}
	}

	out := make(Features, len(raw))
	for key, msg := range raw {
		if key == "" || len(key) > maxFeatureKeyLength {
			return &FeatureMapError{Key: key, Reason: "key must be 1-100 characters"}
		}

		var v FeatureValue
		if err := v.UnmarshalJSON(msg); err != nil {
			return &FeatureMapError{Key: key, Reason: err.Error()}
		}
		out[key] = v
	}

	*f = out
	return nil
}

func (f Features) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f Features) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]FeatureValue(f))
}

func (f *Features) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = Features{}
		return nil
	case []byte:
		return f.UnmarshalJSON(v)
	case string:
		return f.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("scan features: unsupported type %T", src)
	}
}
