package util

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("日期格式错误")

// GetMidnight 当天零点，时区跟随 t
func GetMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDateRange 解析查询参数中的起止时间，返回半开区间 [start, end)。
// 纯日期格式的 end 视为包含当天，即 end 次日零点。
func ParseDateRange(startStr, endStr string, loc *time.Location) (time.Time, time.Time, error) {
	start, _, err := parseDate(startStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, dateOnly, err := parseDate(endStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func parseDate(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, ErrInvalidDate
}
