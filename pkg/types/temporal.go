package types

import (
	"fmt"
	"time"
)

// ParseTime converts a flat record value into a time.Time. Stores hand back
// either time.Time (in-process and badger after decode) or RFC 3339 strings
// (neo4j properties, JSON bodies).
func ParseTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil timestamp")
		}
		return *v, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", v, err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

// ParseTimePtr is ParseTime for optional fields: nil in, nil out.
func ParseTimePtr(value any) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := ParseTime(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func isTimeLike(value any) bool {
	_, err := ParseTime(value)
	return err == nil
}

// TimePtr returns a pointer to t. Convenience for building nodes and edges.
func TimePtr(t time.Time) *time.Time { return &t }
