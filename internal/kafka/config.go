package kafka

import (
	"fmt"
	"time"

	"github.com/jmehdipour/order-alert/internal/config"
)

// FromAppConfig resolves where to consume from. An Event Hubs connection
// string wins over plain brokers; its EntityPath wins over the configured topic.
func FromAppConfig(kc config.KafkaConfig) (Config, error) {
	c := Config{
		Brokers:        kc.Brokers,
		Topic:          kc.Topic,
		GroupID:        kc.GroupID,
		MinBytes:       kc.MinBytes,
		MaxBytes:       kc.MaxBytes,
		CommitInterval: time.Duration(kc.CommitInterval) * time.Millisecond,
	}

	if kc.ConnectionString != "" {
		eh, err := ParseEventHubConnectionString(kc.ConnectionString)
		if err != nil {
			return Config{}, err
		}
		c.Brokers = eh.Brokers
		c.Username, c.Password, c.TLS = eh.Username, eh.Password, eh.TLS
		if eh.Topic != "" {
			c.Topic = eh.Topic
		}
	}

	if len(c.Brokers) == 0 {
		return Config{}, fmt.Errorf("kafka: no brokers configured")
	}
	if c.Topic == "" {
		return Config{}, fmt.Errorf("kafka: no topic configured")
	}
	return c, nil
}
