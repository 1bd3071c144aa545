package kafka

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
)

// newSaramaConfig 浏览事件消费者的 sarama.Config，offset 由批处理完成后手动提交
func newSaramaConfig(kafkaCfg config.KafkaConfig, consumerCfg config.KafkaViewConsumer) *sarama.Config {
	c := sarama.NewConfig()
	if consumerCfg.ClientID != "" {
		c.ClientID = consumerCfg.ClientID
	}

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Consumer.Return.Errors = true
	c.Consumer.Offsets.Initial = initialOffset(consumerCfg.InitialOffset)
	c.Consumer.Offsets.AutoCommit.Enable = false
	// 浏览事件之间没有顺序依赖，sticky 减少重平衡时的分区迁移
	c.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}

	c.Consumer.Group.Session.Timeout = seconds(kafkaCfg.Consumer.SessionTimeout, c.Consumer.Group.Session.Timeout)
	c.Consumer.Group.Heartbeat.Interval = seconds(kafkaCfg.Consumer.HeartbeatInterval, c.Consumer.Group.Heartbeat.Interval)
	c.Consumer.Group.Rebalance.Timeout = seconds(kafkaCfg.Consumer.RebalanceTimeout, c.Consumer.Group.Rebalance.Timeout)
	c.Consumer.MaxProcessingTime = seconds(kafkaCfg.Consumer.MaxProcessingTime, c.Consumer.MaxProcessingTime)

	return c
}

// initialOffset 新消费组默认从最早的事件开始，避免上线前积压的浏览丢失
func initialOffset(s string) int64 {
	if s == "newest" {
		return sarama.OffsetNewest
	}
	return sarama.OffsetOldest
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
