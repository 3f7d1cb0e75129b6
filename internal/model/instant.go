package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

var (
	// ErrMissingTimestamp is returned when an instant has no value at all
	ErrMissingTimestamp = errors.New("timestamp missing")

	// ErrMalformedTimestamp is returned when an instant is present but cannot be parsed
	ErrMalformedTimestamp = errors.New("timestamp malformed")
)

type instantKind uint8

const (
	instantNone instantKind = iota
	instantNative
	instantISO
)

// Instant is a timestamp as the case store hands it back: either a native
// store timestamp or an ISO-8601 string. The zero value is "absent".
type Instant struct {
	kind   instantKind
	native time.Time
	iso    string
}

// NativeInstant wraps a store-native timestamp
func NativeInstant(t time.Time) Instant {
	if t.IsZero() {
		return Instant{}
	}
	return Instant{kind: instantNative, native: t}
}

// ISOInstant wraps an ISO-8601 string
func ISOInstant(s string) Instant {
	if strings.TrimSpace(s) == "" {
		return Instant{}
	}
	return Instant{kind: instantISO, iso: s}
}

// InstantOf is a convenience for the common case of a known UTC time
func InstantOf(t time.Time) Instant {
	return NativeInstant(t.UTC())
}

// IsZero reports whether the instant is absent
func (i Instant) IsZero() bool {
	return i.kind == instantNone
}

// isoLayouts are tried in order. Strings without an offset are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Normalize converts the instant into a UTC time.Time.
func (i Instant) Normalize() (time.Time, error) {
	switch i.kind {
	case instantNative:
		return i.native.UTC(), nil
	case instantISO:
		s := strings.TrimSpace(i.iso)
		if strings.HasSuffix(s, "Z") {
			s = strings.TrimSuffix(s, "Z") + "+00:00"
		}
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, i.iso)
	default:
		return time.Time{}, ErrMissingTimestamp
	}
}

// Time returns the normalized time, or nil when absent or malformed
func (i Instant) Time() *time.Time {
	t, err := i.Normalize()
	if err != nil {
		return nil
	}
	return &t
}

// String renders the instant for display
func (i Instant) String() string {
	switch i.kind {
	case instantNative:
		return i.native.UTC().Format(time.RFC3339)
	case instantISO:
		return i.iso
	default:
		return ""
	}
}

// MarshalBSONValue stores native instants as BSON DateTime and ISO instants as strings
func (i Instant) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch i.kind {
	case instantNative:
		return bsontype.DateTime, bsoncore.AppendDateTime(nil, i.native.UnixMilli()), nil
	case instantISO:
		return bsontype.String, bsoncore.AppendString(nil, i.iso), nil
	default:
		return bsontype.Null, nil, nil
	}
}

// UnmarshalBSONValue accepts DateTime, string and null values
func (i *Instant) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	val := bsoncore.Value{Type: t, Data: data}
	switch t {
	case bsontype.DateTime:
		ms, ok := val.DateTimeOK()
		if !ok {
			return fmt.Errorf("%w: bad datetime", ErrMalformedTimestamp)
		}
		*i = NativeInstant(time.UnixMilli(ms).UTC())
	case bsontype.String:
		s, ok := val.StringValueOK()
		if !ok {
			return fmt.Errorf("%w: bad string", ErrMalformedTimestamp)
		}
		*i = ISOInstant(s)
	case bsontype.Null, bsontype.Undefined:
		*i = Instant{}
	default:
		// Unknown shapes are kept as absent; scoring falls back to defaults.
		*i = Instant{}
	}
	return nil
}

// MarshalJSON writes native instants as RFC 3339 and ISO instants verbatim
func (i Instant) MarshalJSON() ([]byte, error) {
	if i.kind == instantNone {
		return []byte("null"), nil
	}
	return json.Marshal(i.String())
}

// UnmarshalJSON reads strings as ISO instants and numbers as unix seconds
func (i *Instant) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*i = Instant{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = ISOInstant(s)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedTimestamp, trimmed)
	}
	whole := int64(secs)
	nanos := int64((secs - float64(whole)) * 1e9)
	*i = NativeInstant(time.Unix(whole, nanos).UTC())
	return nil
}

// MarshalYAML renders the instant as a plain string
func (i Instant) MarshalYAML() (interface{}, error) {
	if i.kind == instantNone {
		return nil, nil
	}
	return i.String(), nil
}

// UnmarshalYAML reads YAML timestamps and strings as ISO instants
func (i *Instant) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*i = Instant{}
	case time.Time:
		*i = NativeInstant(v.UTC())
	case string:
		*i = ISOInstant(v)
	default:
		*i = ISOInstant(fmt.Sprint(v))
	}
	return nil
}
