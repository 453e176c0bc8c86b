// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package legacy

import "fmt"

// ConversionError occurs when an inbound request can not be converted
// into a valid canonical event. It is the only error type returned by
// the conversion functions in this package.
type ConversionError struct {
	Reason string
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e ConversionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("failed to convert request to cloudevent: %s", e.Reason)
	}
	return fmt.Sprintf("failed to convert request to cloudevent: %s: %s", e.Reason, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e ConversionError) Unwrap() error {
	return e.Cause
}

func conversionErrorf(cause error, format string, args ...any) ConversionError {
	return ConversionError{
		Reason: fmt.Sprintf(format, args...),
		Cause:  cause,
	}
}
