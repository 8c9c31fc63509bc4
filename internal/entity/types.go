package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Tags is a string list persisted as a JSON array in a TEXT column so the
// same schema works on Postgres and SQLite.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("tags: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("tags: %w", err)
	}
	*t = out
	return nil
}

// Normalize trims, lower-cases and de-duplicates tags keeping first-seen order.
func (t Tags) Normalize() Tags {
	seen := make(map[string]struct{}, len(t))
	out := make(Tags, 0, len(t))
	for _, tag := range t {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func (t Tags) Contains(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, v := range t {
		if v == tag {
			return true
		}
	}
	return false
}

// Now returns the current time in the precision stored by the database.
func Now() time.Time {
	return Timestamp(time.Now())
}

// Timestamp normalizes t to UTC with microsecond precision.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Page carries resolved pagination for list queries.
type Page struct {
	Limit  int
	Offset int
}

// PageNumber returns the 1-based page that Offset falls in.
func (p Page) PageNumber() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}
