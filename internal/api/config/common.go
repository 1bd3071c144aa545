package config

import "time"

// Config 配置主体
type Config struct {
	Server            ServerConfig      `mapstructure:"server"`
	DB                DBConfig          `mapstructure:"database"`
	Redis             RedisConfig       `mapstructure:"redis"`
	Logstash          LogstashConfig    `mapstructure:"logstash"`
	JWT               JWTConfig         `mapstructure:"jwt"`
	Kafka             KafkaConfig       `mapstructure:"kafka"`
	KafkaViewConsumer KafkaViewConsumer `mapstructure:"kafka_view_consumer"`
	View              ViewConfig        `mapstructure:"view"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// LogstashConfig 远程日志
type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

// KafkaViewConsumer 浏览事件消费者，initial_offset 取 oldest 或 newest
type KafkaViewConsumer struct {
	Topic         string        `mapstructure:"topic"`
	GroupID       string        `mapstructure:"group_id"`
	ClientID      string        `mapstructure:"client_id"`
	InitialOffset string        `mapstructure:"initial_offset"`
	BatchSize     int           `mapstructure:"batch_size"`
	BatchTimeout  time.Duration `mapstructure:"batch_timeout"`
}

// ViewConfig 浏览量统计相关的窗口、TTL 与批处理参数
type ViewConfig struct {
	DedupWindow           time.Duration `mapstructure:"dedup_window"`
	CountCacheTTL         time.Duration `mapstructure:"count_cache_ttl"`
	HashIPKeys            bool          `mapstructure:"hash_ip_keys"`
	BatchSize             int           `mapstructure:"batch_size"`
	FlushInterval         time.Duration `mapstructure:"flush_interval"`
	SweepLookback         time.Duration `mapstructure:"sweep_lookback"`
	CacheTimeout          time.Duration `mapstructure:"cache_timeout"`
	CacheFailureThreshold int           `mapstructure:"cache_failure_threshold"`
	CacheHealthInterval   time.Duration `mapstructure:"cache_health_interval"`
	RecordTimeout         time.Duration `mapstructure:"record_timeout"`
	LogRetryAttempts      uint          `mapstructure:"log_retry_attempts"`
	LogRetryDelay         time.Duration `mapstructure:"log_retry_delay"`
	ConsistencyCron       string        `mapstructure:"consistency_cron"`
	ConsistencyThreshold  int64         `mapstructure:"consistency_threshold"`
	StatsCacheTTL         time.Duration `mapstructure:"stats_cache_ttl"`
	Location              string        `mapstructure:"location"`
}

// DefaultViewConfig 默认参数，未配置的字段以此补齐
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		DedupWindow:           time.Hour,
		CountCacheTTL:         24 * time.Hour,
		BatchSize:             500,
		FlushInterval:         30 * time.Minute,
		SweepLookback:         2 * time.Hour,
		CacheTimeout:          200 * time.Millisecond,
		CacheFailureThreshold: 5,
		CacheHealthInterval:   10 * time.Second,
		RecordTimeout:         5 * time.Second,
		LogRetryAttempts:      3,
		LogRetryDelay:         100 * time.Millisecond,
		ConsistencyCron:       "0 0 2 * * *",
		ConsistencyThreshold:  10,
		StatsCacheTTL:         time.Minute,
		Location:              "Local",
	}
}

// WithDefaults 用默认值补齐零值字段
func (c ViewConfig) WithDefaults() ViewConfig {
	d := DefaultViewConfig()
	if c.DedupWindow <= 0 {
		c.DedupWindow = d.DedupWindow
	}
	if c.CountCacheTTL <= 0 {
		c.CountCacheTTL = d.CountCacheTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.SweepLookback <= 0 {
		c.SweepLookback = d.SweepLookback
	}
	if c.CacheTimeout <= 0 {
		c.CacheTimeout = d.CacheTimeout
	}
	if c.CacheFailureThreshold <= 0 {
		c.CacheFailureThreshold = d.CacheFailureThreshold
	}
	if c.CacheHealthInterval <= 0 {
		c.CacheHealthInterval = d.CacheHealthInterval
	}
	if c.RecordTimeout <= 0 {
		c.RecordTimeout = d.RecordTimeout
	}
	if c.LogRetryAttempts == 0 {
		c.LogRetryAttempts = d.LogRetryAttempts
	}
	if c.LogRetryDelay <= 0 {
		c.LogRetryDelay = d.LogRetryDelay
	}
	if c.ConsistencyCron == "" {
		c.ConsistencyCron = d.ConsistencyCron
	}
	if c.ConsistencyThreshold <= 0 {
		c.ConsistencyThreshold = d.ConsistencyThreshold
	}
	if c.Location == "" {
		c.Location = d.Location
	}
	return c
}

// TimeLocation 周统计使用的时区，解析失败回落到本地时区
func (c ViewConfig) TimeLocation() *time.Location {
	if c.Location == "" || c.Location == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.Local
	}
	return loc
}
