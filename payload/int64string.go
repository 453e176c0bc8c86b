// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Int64String is an int64 which is serialized as a JSON string
// holding its decimal representation. Unmarshalling also accepts
// a bare JSON number.
type Int64String int64

// NotNumericError is returned when a JSON value can not be interpreted
// as a decimal int64.
type NotNumericError struct {
	Value string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e NotNumericError) Error() string {
	return fmt.Sprintf("value is not a decimal int64: %s", e.Value)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e NotNumericError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the [json.Marshaler] interface.
func (n Int64String) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(n), 10))), nil
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (n *Int64String) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		err := json.Unmarshal(b, &s)
		if err != nil {
			return NotNumericError{Value: string(b), Cause: err}
		}
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NotNumericError{Value: s, Cause: err}
	}
	*n = Int64String(i)
	return nil
}

// Int64 returns n as an int64.
func (n Int64String) Int64() int64 {
	return int64(n)
}
