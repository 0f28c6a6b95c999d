package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSet is an ordered set of identifiers persisted as a JSON array.
// Order is insertion order; Add and Remove keep entries unique.
type StringSet []string

// Has reports whether id is present in the set.
func (s StringSet) Has(id string) bool {
	for _, existing := range s {
		if existing == id {
			return true
		}
	}
	return false
}

// Add returns the set with id appended if it was not already present.
func (s StringSet) Add(id string) StringSet {
	if s.Has(id) {
		return s
	}
	return append(s, id)
}

// Remove returns the set without id.
func (s StringSet) Remove(id string) StringSet {
	result := make(StringSet, 0, len(s))
	for _, existing := range s {
		if existing != id {
			result = append(result, existing)
		}
	}
	return result
}

// Value implements driver.Valuer.
func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		s = StringSet{}
	}
	encoded, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Scan implements sql.Scanner.
func (s *StringSet) Scan(value interface{}) error {
	if value == nil {
		*s = StringSet{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StringSet", value)
	}

	if len(raw) == 0 {
		*s = StringSet{}
		return nil
	}

	var decoded []string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*s = decoded
	return nil
}
