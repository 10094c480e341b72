package realtime

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-checkin/internal/config"
)

// NewEmitter builds the emitter selected by cfg.Transport.  The redis
// transport needs a live client.
func NewEmitter(cfg config.RealtimeConfig, rdb *redis.Client, log *slog.Logger) (Emitter, error) {
	switch cfg.Transport {
	case "", "log":
		return NewLogEmitter(log), nil
	case "amqp":
		return NewAMQPEmitter(cfg.AMQPURL, cfg.Exchange), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("realtime: redis transport selected but redis is unavailable")
		}
		return NewRedisEmitter(rdb, cfg.RedisPrefix), nil
	case "mqtt":
		e, err := NewMQTTEmitter(MQTTConfig{
			Broker:    cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			TopicRoot: cfg.MQTTTopicRoot,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("realtime: unknown transport %q", cfg.Transport)
}
