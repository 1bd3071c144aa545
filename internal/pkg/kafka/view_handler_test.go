package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecordService struct {
	service.ViewRecordService
	err  error
	cmds []service.RecordViewCommand
}

func (s *stubRecordService) Record(_ context.Context, cmd service.RecordViewCommand) (*service.RecordResult, error) {
	s.cmds = append(s.cmds, cmd)
	if s.err != nil {
		return nil, s.err
	}
	return &service.RecordResult{Outcome: service.OutcomeCounted}, nil
}

func TestViewsHandler_Logic(t *testing.T) {
	viewedAt := time.Date(2026, 1, 6, 8, 30, 0, 0, time.UTC)
	valid := fmt.Sprintf(`{"event_id":"evt-1","prompt_id":7,"user_id":42,"ip_address":"1.2.3.4","viewed_at":%q}`,
		viewedAt.Format(time.RFC3339))

	tests := []struct {
		name      string
		value     string
		recordErr error
		wantErr   bool
		wantCalls int
	}{
		{name: "recorded", value: valid, wantCalls: 1},
		{name: "malformed json dropped", value: `{"prompt_id":`, wantCalls: 0},
		{name: "invalid viewer dropped", value: valid, recordErr: service.ErrInvalidViewer, wantCalls: 1},
		{name: "unknown prompt dropped", value: valid, recordErr: service.ErrPromptNotFound, wantCalls: 1},
		{name: "log append failure dropped", value: valid, recordErr: fmt.Errorf("%w: disk full", service.ErrDurableWriteFailed), wantCalls: 1},
		{name: "unexpected error retried", value: valid, recordErr: errors.New("context deadline exceeded"), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubRecordService{err: tt.recordErr}
			h := NewViewsHandler(svc, config.KafkaViewConsumer{})

			err := h.logic(context.Background(), &sarama.ConsumerMessage{Value: []byte(tt.value), Offset: 3})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, svc.cmds, tt.wantCalls)
			if tt.wantCalls > 0 {
				cmd := svc.cmds[0]
				assert.Equal(t, uint64(7), cmd.PromptID)
				assert.Equal(t, uint64(42), cmd.UserID)
				assert.Equal(t, "evt-1", cmd.EventID)
				assert.Equal(t, "1.2.3.4", cmd.IPAddress)
				assert.True(t, viewedAt.Equal(cmd.ViewedAt))
			}
		})
	}
}
