package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CacheKey is the caller-supplied identifier of a cache entry.
// It decodes from a JSON string or number; numbers keep their literal form.
type CacheKey string

// UnmarshalJSON implements json.Unmarshaler
func (k *CacheKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*k = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: id: %v", ErrInvalidArgument, err)
		}
		*k = CacheKey(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: id must be a string or a number", ErrInvalidArgument)
		}
		*k = CacheKey(n.String())
		return nil
	}
}

// ParseKeyArgument decodes a command argument that is either a bare id
// or an object carrying it under "id".
func ParseKeyArgument(data json.RawMessage) (CacheKey, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", nil
	}

	if trimmed[0] == '{' {
		var req KeyRequest
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return "", wrapInvalid(err)
		}
		return req.ID, nil
	}

	var key CacheKey
	if err := json.Unmarshal(trimmed, &key); err != nil {
		return "", wrapInvalid(err)
	}
	return key, nil
}

func wrapInvalid(err error) error {
	if errors.Is(err, ErrInvalidArgument) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
}
