// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package payload

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// PathError is returned by [GetValue] for malformed paths and for paths
// which do not address a value.
type PathError struct {
	Path    string
	Segment string
	Reason  string
}

// Error implements the [builtin.error] interface.
func (e PathError) Error() string {
	return fmt.Sprintf("invalid struct path %q at segment %q: %s", e.Path, e.Segment, e.Reason)
}

// GetValue resolves a path such as "a/b[2]/c" against s and returns the
// addressed value as a plain Go value.
//
// Segments are separated by '/'. A segment of the form "name[i]" looks up
// the list field name and indexes into it. Lists become []any, structs
// become map[string]any and null becomes nil.
func GetValue(s *structpb.Struct, path string) (any, error) {
	segments := strings.Split(path, "/")
	cur := s

	var v *structpb.Value
	for i, seg := range segments {
		pathErr := func(format string, args ...any) PathError {
			return PathError{Path: path, Segment: seg, Reason: fmt.Sprintf(format, args...)}
		}

		if cur == nil {
			return nil, pathErr("path segment occurred when not in a struct value")
		}

		name, index, hasIndex, err := parseSegment(seg)
		if err != nil {
			return nil, pathErr("%s", err)
		}

		field, ok := cur.GetFields()[name]
		if !ok {
			return nil, pathErr("field %q not found", name)
		}
		v = field

		if hasIndex {
			list := v.GetListValue()
			if list == nil {
				return nil, pathErr("field %q is not a list", name)
			}
			values := list.GetValues()
			if index < 0 || index >= len(values) {
				return nil, pathErr("index %d out of range for list of length %d", index, len(values))
			}
			v = values[index]
		}

		if i < len(segments)-1 {
			cur = v.GetStructValue()
		}
	}
	return v.AsInterface(), nil
}

func parseSegment(seg string) (name string, index int, hasIndex bool, err error) {
	if seg == "" {
		return "", 0, false, fmt.Errorf("empty path segment")
	}

	opens := strings.Count(seg, "[")
	closes := strings.Count(seg, "]")
	if opens == 0 && closes == 0 {
		return seg, 0, false, nil
	}
	if opens != 1 || closes != 1 {
		return "", 0, false, fmt.Errorf("unbalanced brackets")
	}

	open := strings.IndexByte(seg, '[')
	closeAt := strings.IndexByte(seg, ']')
	if closeAt < open || closeAt != len(seg)-1 || open == 0 {
		return "", 0, false, fmt.Errorf("malformed list indexer")
	}

	digits := seg[open+1 : closeAt]
	if !plainDecimal(digits) {
		return "", 0, false, fmt.Errorf("list index %q is not a plain decimal number", digits)
	}
	index, err = strconv.Atoi(digits)
	if err != nil {
		return "", 0, false, fmt.Errorf("list index %q is out of range", digits)
	}
	return seg[:open], index, true, nil
}

// plainDecimal reports whether s is made of ASCII digits only, without
// a sign or leading zeros.
func plainDecimal(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
