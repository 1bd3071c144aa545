package kafka

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/logger"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
	"github.com/google/uuid"
)

// ViewEvent 上游服务投递的浏览事件
type ViewEvent struct {
	EventID     string    `json:"event_id"`
	PromptID    uint64    `json:"prompt_id"`
	UserID      uint64    `json:"user_id"`
	AnonymousID string    `json:"anonymous_id"`
	IPAddress   string    `json:"ip_address"`
	ViewedAt    time.Time `json:"viewed_at"`
}

func (e *ViewEvent) toCommand() service.RecordViewCommand {
	return service.RecordViewCommand{
		PromptID:    e.PromptID,
		UserID:      e.UserID,
		AnonymousID: e.AnonymousID,
		IPAddress:   e.IPAddress,
		EventID:     e.EventID,
		ViewedAt:    e.ViewedAt,
	}
}

type ViewsHandler struct {
	recordSvc service.ViewRecordService
	batch     batchOptions
}

func NewViewsHandler(recordSvc service.ViewRecordService, cfg config.KafkaViewConsumer) *ViewsHandler {
	return &ViewsHandler{
		recordSvc: recordSvc,
		batch:     newBatchOptions(cfg.BatchSize, cfg.BatchTimeout),
	}
}

func (s *ViewsHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("prompt view consumer setup")
	return nil
}

func (s *ViewsHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("prompt view consumer cleanup")
	return nil
}

func (s *ViewsHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-view consume claim", "topic", claim.Topic(), "partition", claim.Partition())
	err := pullMessageBatch(session, claim, s.batch, s.logic)
	if err != nil {
		log.Error("topic-view process batch error", "err", err)
		return err
	}
	return nil
}

// logic 返回 nil 表示消息已消费完毕（包括被丢弃），返回错误会触发重试
func (s *ViewsHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ctx = logger.WithTraceID(ctx, "kafka-view-"+uuid.NewString())

	var event ViewEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.WarnContext(ctx, "drop malformed view event", "offset", msg.Offset, "err", err)
		return nil
	}

	result, err := s.recordSvc.Record(ctx, event.toCommand())
	switch {
	case err == nil:
		log.DebugContext(ctx, "view event recorded", "prompt_id", event.PromptID, "outcome", result.Outcome)
		return nil
	case errors.Is(err, service.ErrParamInvalid),
		errors.Is(err, service.ErrInvalidViewer),
		errors.Is(err, service.ErrPromptNotFound):
		log.WarnContext(ctx, "drop invalid view event", "event_id", event.EventID, "prompt_id", event.PromptID, "err", err)
		return nil
	case errors.Is(err, service.ErrDurableWriteFailed):
		// 去重标记已写入，重投只会被判为重复
		log.ErrorContext(ctx, "view event log append failed", "event_id", event.EventID, "prompt_id", event.PromptID, "err", err)
		return nil
	default:
		return err
	}
}
