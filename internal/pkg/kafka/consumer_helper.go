package kafka

import (
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/avast/retry-go/v4"
)

const (
	defaultBatchSize     = 32
	defaultBatchTimeout  = time.Second
	initialRetryInterval = 100 * time.Millisecond
	maxRetryInterval     = 5 * time.Second
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

type batchOptions struct {
	size    int
	timeout time.Duration
}

func newBatchOptions(size int, timeout time.Duration) batchOptions {
	if size <= 0 {
		size = defaultBatchSize
	}
	if timeout <= 0 {
		timeout = defaultBatchTimeout
	}
	return batchOptions{size: size, timeout: timeout}
}

// pullMessageBatch 攒够 size 条或等待 timeout 后处理一批
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, opts batchOptions, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, opts.size)
	ticker := time.NewTicker(opts.timeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			processBatch(session, batch, logic)
			batch = make([]*sarama.ConsumerMessage, 0, opts.size)
		}
	}

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= opts.size {
				flush()
				ticker.Reset(opts.timeout)
			}
		case <-ticker.C:
			flush()
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 并发处理一批事件，失败的事件退避重试到成功为止。
// 会话中途结束时不提交 offset，重投的事件由去重与日志主键吸收。
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic LogicFunc) {
	ctx := session.Context()
	var wg sync.WaitGroup

	for _, msg := range messages {
		wg.Add(1)
		go func(m *sarama.ConsumerMessage) {
			defer wg.Done()
			_ = retry.Do(
				func() error {
					return logic(ctx, m)
				},
				retry.Context(ctx),
				retry.Attempts(0),
				retry.Delay(initialRetryInterval),
				retry.MaxDelay(maxRetryInterval),
				retry.DelayType(retry.BackOffDelay),
				retry.LastErrorOnly(true),
				retry.OnRetry(func(n uint, err error) {
					log.Error("process view event error", "topic", m.Topic, "partition", m.Partition,
						"offset", m.Offset, "attempt", n+1, "err", err)
				}),
			)
		}(msg)
	}
	wg.Wait()

	if ctx.Err() != nil || len(messages) == 0 {
		return
	}
	session.MarkMessage(messages[len(messages)-1], "")
	session.Commit()
}
