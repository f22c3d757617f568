package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// EmbeddingVector stores a fixed-dimensional float32 embedding.
type EmbeddingVector []float32

func (v EmbeddingVector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (v *EmbeddingVector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("EmbeddingVector: unsupported scan type")
		}
		b = []byte(s)
	}
	if len(b) == 0 {
		*v = nil
		return nil
	}
	return json.Unmarshal(b, v)
}
