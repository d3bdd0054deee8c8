package pubsub

import (
	"fmt"
	"time"
)

// Backend selects the event bus implementation.
const (
	BackendRedis = "redis"
	BackendKafka = "kafka"
)

// RedisConfig holds Redis pubsub configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig holds Kafka pubsub configuration.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	GroupID    string `mapstructure:"group_id"`
	Partitions int    `mapstructure:"partitions"`
}

// Config selects and configures a pubsub backend.
type Config struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

// New creates a PubSub instance for the configured backend.
func New(cfg Config) (PubSub, error) {
	switch cfg.Backend {
	case BackendRedis:
		return NewRedisPubSub(cfg.Redis)
	case BackendKafka:
		return NewKafkaPubSub(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported pubsub backend: %s", cfg.Backend)
	}
}
