package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleQuery struct {
	StartDate   string   `form:"start_date" validate:"required"`
	Limit       int      `form:"limit" validate:"gte=0,lte=100"`
	AnonymousID string   `json:"anonymous_id" validate:"omitempty,max=4"`
	CategoryIDs []uint64 `form:"category_ids" validate:"omitempty,dive,gt=0"`
}

func TestValidateDTO(t *testing.T) {
	tests := []struct {
		name    string
		dto     sampleQuery
		wantErr string
	}{
		{name: "valid", dto: sampleQuery{StartDate: "2026-01-05", Limit: 10}},
		{name: "required", dto: sampleQuery{}, wantErr: "参数 [start_date] 不能为空"},
		{name: "limit", dto: sampleQuery{StartDate: "x", Limit: 101}, wantErr: "参数 [limit] 不能大于 100"},
		{name: "negative limit", dto: sampleQuery{StartDate: "x", Limit: -1}, wantErr: "参数 [limit] 不能小于 0"},
		{name: "json name", dto: sampleQuery{StartDate: "x", AnonymousID: "toolong"}, wantErr: "参数 [anonymous_id] 不能大于 4"},
		{name: "dive", dto: sampleQuery{StartDate: "x", CategoryIDs: []uint64{1, 0}}, wantErr: "参数 [category_ids[1]] 必须大于 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDTO(&tt.dto)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
