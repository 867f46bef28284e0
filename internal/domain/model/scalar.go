package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Scalar holds a JSON scalar whose wire type varies between backend columns
// (numbers, strings, booleans or null). It keeps the textual form.
type Scalar string

// UnmarshalJSON accepts any JSON scalar. Null becomes the empty string.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Scalar(v)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("model: scalar expected, got %s", data[:1])
	default:
		*s = Scalar(data)
	}
	return nil
}

// MarshalJSON writes numbers and booleans bare and everything else quoted.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	str := string(s)
	if str == "true" || str == "false" {
		return []byte(str), nil
	}
	if _, err := strconv.ParseFloat(str, 64); err == nil && json.Valid([]byte(str)) {
		return []byte(str), nil
	}
	return json.Marshal(str)
}

func (s Scalar) String() string { return string(s) }
