package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanTime(t *testing.T) {
	want := time.Date(2026, 3, 4, 10, 20, 30, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want time.Time
	}{
		{name: "nil", in: nil, want: time.Time{}},
		{name: "time", in: want, want: want},
		{name: "sqlite string", in: "2026-03-04 10:20:30+00:00", want: want},
		{name: "bytes rfc3339", in: []byte("2026-03-04T10:20:30Z"), want: want},
		{name: "date only", in: "2026-03-04", want: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st scanTime
			require.NoError(t, st.Scan(tt.in))
			assert.True(t, tt.want.Equal(st.Time), "got %s", st.Time)
		})
	}
}

func TestScanTime_Invalid(t *testing.T) {
	var st scanTime
	assert.Error(t, st.Scan("yesterday"))
	assert.Error(t, st.Scan(42))
}
