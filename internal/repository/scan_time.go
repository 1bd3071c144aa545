package repository

import (
	"fmt"
	"time"
)

var scanTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
}

// scanTime 时间列和 MAX 聚合在不同驱动下可能返回 time.Time、string 或 []byte
type scanTime struct {
	time.Time
}

func (t *scanTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = x
		return nil
	case []byte:
		return t.parse(string(x))
	case string:
		return t.parse(x)
	default:
		return fmt.Errorf("scanTime: unsupported type %T", v)
	}
}

func (t *scanTime) parse(s string) error {
	for _, layout := range scanTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("scanTime: cannot parse %q", s)
}
