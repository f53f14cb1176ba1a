package transaction_outbox

import (
	"github.com/caarlos0/env"
)

type Config struct {
	PollInterval int   `json:"poll_interval" env:"OUTBOX_POLL_INTERVAL" envDefault:"250"`
	WorkersCount int64 `json:"workers_count" env:"OUTBOX_WORKERS_COUNT" envDefault:"2"`
	MaxAttempts  int   `json:"max_attempts" env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`

	KafkaTopic        string `json:"kafka_topic" env:"KAFKA_TRANSACTION_EVENTS_TOPIC" envDefault:"transaction_events"`
	KafkaWriteTimeout int    `json:"kafka_write_timeout" env:"KAFKA_WRITE_TIMEOUT" envDefault:"10000"`
}

func MustNewConfig() *Config {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		panic(err)
	}

	return c
}
