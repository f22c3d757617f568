package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringSlice stores an ordered multiset of short strings (Topic.Keywords).
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("StringSlice: unsupported scan type")
		}
		b = []byte(str)
	}
	if len(b) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(b, s)
}
