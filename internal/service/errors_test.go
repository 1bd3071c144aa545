package service

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOK   bool
	}{
		{name: "sentinel", err: ErrPromptNotFound, wantCode: NotFound, wantOK: true},
		{name: "fmt wrapped", err: fmt.Errorf("%w: db down", ErrStatisticsUnavailable), wantCode: ServiceUnavailable, wantOK: true},
		{name: "pkg wrapped", err: pkgerrors.Wrap(ErrInvalidPeriod, "parse"), wantCode: BadRequest, wantOK: true},
		{name: "outermost wins", err: fmt.Errorf("%w: %w", ErrReconcileFailed, fmt.Errorf("%w: timeout", ErrCacheUnavailable)), wantCode: InternalServerError, wantOK: true},
		{name: "unknown", err: errors.New("boom"), wantOK: false},
		{name: "nil", err: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := CodeOf(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantCode, code)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("%w: x", ErrStatisticsUnavailable)))
	assert.True(t, IsRetryable(ErrSyncInProgress))
	assert.True(t, IsRetryable(fmt.Errorf("%w: %w", ErrCacheUnavailable, errors.New("i/o timeout"))))
	assert.False(t, IsRetryable(ErrInvalidPeriod))
	assert.False(t, IsRetryable(ErrPromptNotFound))
}
