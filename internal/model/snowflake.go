package model

import (
	"bytes"
	"fmt"
	"strconv"
)

// Snowflake is the service's opaque numeric entity identifier.
type Snowflake uint64

// ParseSnowflake parses a decimal ID string.
func ParseSnowflake(s string) (Snowflake, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snowflake %q: %w", s, err)
	}
	return Snowflake(v), nil
}

// String returns the decimal form used on the wire and in routes.
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// EntityID implements EntityRef, so a bare ID can stand in for a
// resolved entity anywhere a reference is accepted.
func (s Snowflake) EntityID() Snowflake {
	return s
}

// MarshalJSON encodes the ID as a decimal string.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts both string and bare-number encodings; the
// service quotes IDs but some payloads historically did not.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("unmarshal snowflake: %w", err)
	}
	*s = Snowflake(v)
	return nil
}

// EntityRef identifies an entity either as a bare ID or as a resolved
// entity value. Every entity type and Snowflake itself implement it.
type EntityRef interface {
	EntityID() Snowflake
}
