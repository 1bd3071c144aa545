package kafka

import (
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
)

// ConsumerManager 管理 Kafka 消费者
type ConsumerManager struct {
	topic        string
	viewConsumer sarama.ConsumerGroup
	viewHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 未配置 broker 时返回 nil，由调用方跳过
func NewConsumerManager(cfg *config.Config, recordSvc service.ViewRecordService) (*ConsumerManager, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	saramaCfg := newSaramaConfig(cfg.Kafka, cfg.KafkaViewConsumer)

	viewConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaViewConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		topic:        cfg.KafkaViewConsumer.Topic,
		viewConsumer: viewConsumer,
		viewHandler:  NewViewsHandler(recordSvc, cfg.KafkaViewConsumer),
	}, nil
}

// Start 阻塞直到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.viewConsumer.Errors() {
			log.Error("view consumer error", "err", err)
		}
	}()

	go func() {
		log.Info("View consumer started", "topic", m.topic)
		for {
			if err := m.viewConsumer.Consume(ctx, []string{m.topic}, m.viewHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.viewConsumer.Close(); err != nil {
		log.Error("Failed to close view consumer", "err", err)
	}
	return nil
}
