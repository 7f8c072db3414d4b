// internal/interfaces/services.go
package interfaces

import (
	"context"
	"time"
)

// CacheService Redis 캐시 관련 서비스 인터페이스
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error

	// Hash operations for robot snapshots
	HSet(ctx context.Context, key string, values map[string]interface{}) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Set operations for the obstacle registry
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// MessageHandler 수신 메시지 콜백 (브로커의 콜백 고루틴에서 호출됨)
type MessageHandler func(topic string, payload []byte)

// MessagePublisher MQTT 메시지 발행/구독 인터페이스
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(topic string, qos byte, callback MessageHandler) error
	Unsubscribe(topics ...string) error
	IsConnected() bool
	Disconnect(quiesce uint)
}

// ConfigProvider 설정 제공 인터페이스
type ConfigProvider interface {
	GetRobotSerialNumber() string
	GetRobotManufacturer() string
	GetTopicPrefix() string
	GetMapID() string
	GetLogLevel() string
	GetGoalTimeout() time.Duration
}

// Logger 로깅 인터페이스
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// HeaderIDGenerator 헤더 ID 생성 인터페이스
type HeaderIDGenerator interface {
	GetNextHeaderID() int64
}
