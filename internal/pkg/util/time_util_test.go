package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateRange(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)

	tests := []struct {
		name      string
		start     string
		end       string
		loc       *time.Location
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name: "date only end is inclusive", start: "2026-01-05", end: "2026-01-06", loc: time.UTC,
			wantStart: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "dates use location", start: "2026-01-05", end: "2026-01-05", loc: seoul,
			wantStart: time.Date(2026, 1, 5, 0, 0, 0, 0, seoul),
			wantEnd:   time.Date(2026, 1, 6, 0, 0, 0, 0, seoul),
		},
		{
			name: "rfc3339 kept as is", start: "2026-01-05T10:00:00Z", end: "2026-01-05T12:30:00+09:00", loc: time.UTC,
			wantStart: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 1, 5, 3, 30, 0, 0, time.UTC),
		},
		{name: "bad start", start: "05/01/2026", end: "2026-01-05", loc: time.UTC, wantErr: true},
		{name: "empty end", start: "2026-01-05", end: " ", loc: time.UTC, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseDateRange(tt.start, tt.end, tt.loc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(start), "start %s", start)
			assert.True(t, tt.wantEnd.Equal(end), "end %s", end)
		})
	}
}

func TestGetMidnight(t *testing.T) {
	at := time.Date(2026, 1, 5, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), GetMidnight(at))
}
