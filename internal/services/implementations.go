// internal/services/implementations.go
package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"cp1-controllers/internal/config"
	"cp1-controllers/internal/interfaces"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// Cache Service Implementation
// =============================================================================

type CacheServiceImpl struct {
	client *redis.Client
}

func NewCacheService(client *redis.Client) interfaces.CacheService {
	return &CacheServiceImpl{client: client}
}

func (c *CacheServiceImpl) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

func (c *CacheServiceImpl) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *CacheServiceImpl) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *CacheServiceImpl) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return c.client.HSet(ctx, key, values).Err()
}

func (c *CacheServiceImpl) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

func (c *CacheServiceImpl) SAdd(ctx context.Context, key string, members ...string) error {
	return c.client.SAdd(ctx, key, toInterfaces(members)...).Err()
}

func (c *CacheServiceImpl) SRem(ctx context.Context, key string, members ...string) error {
	return c.client.SRem(ctx, key, toInterfaces(members)...).Err()
}

func (c *CacheServiceImpl) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.client.SMembers(ctx, key).Result()
}

func (c *CacheServiceImpl) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CacheServiceImpl) Close() error {
	return c.client.Close()
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// =============================================================================
// Message Publisher Implementation
// =============================================================================

type MessagePublisherImpl struct {
	client mqtt.Client
	logger interfaces.Logger
}

func NewMessagePublisher(client mqtt.Client, logger interfaces.Logger) interfaces.MessagePublisher {
	return &MessagePublisherImpl{client: client, logger: logger}
}

func (m *MessagePublisherImpl) Publish(topic string, qos byte, retained bool, payload interface{}) error {
	if !m.client.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	token := m.client.Publish(topic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		m.logger.Errorf("❌ MQTT SEND FAILED: %s - %v", topic, token.Error())
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}

	m.logger.Debugf("📤 MQTT SENT: %s", topic)
	return nil
}

func (m *MessagePublisherImpl) Subscribe(topic string, qos byte, callback interfaces.MessageHandler) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		callback(msg.Topic(), msg.Payload())
	}

	token := m.client.Subscribe(topic, qos, handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	m.logger.Infof("✅ Subscribed to topic: %s", topic)
	return nil
}

func (m *MessagePublisherImpl) Unsubscribe(topics ...string) error {
	token := m.client.Unsubscribe(topics...)
	token.Wait()
	return token.Error()
}

func (m *MessagePublisherImpl) IsConnected() bool {
	return m.client.IsConnected()
}

func (m *MessagePublisherImpl) Disconnect(quiesce uint) {
	if m.client.IsConnected() {
		m.client.Disconnect(quiesce)
		m.logger.Info("MQTT client disconnected")
	}
}

// =============================================================================
// Config Provider Implementation
// =============================================================================

type ConfigProviderImpl struct {
	cfg *config.Config
}

func NewConfigProvider(cfg *config.Config) interfaces.ConfigProvider {
	return &ConfigProviderImpl{cfg: cfg}
}

func (c *ConfigProviderImpl) GetRobotSerialNumber() string {
	return c.cfg.RobotSerialNumber
}

func (c *ConfigProviderImpl) GetRobotManufacturer() string {
	return c.cfg.RobotManufacturer
}

func (c *ConfigProviderImpl) GetTopicPrefix() string {
	return c.cfg.TopicPrefix
}

func (c *ConfigProviderImpl) GetMapID() string {
	return c.cfg.MapID
}

func (c *ConfigProviderImpl) GetLogLevel() string {
	return c.cfg.LogLevel
}

func (c *ConfigProviderImpl) GetGoalTimeout() time.Duration {
	return c.cfg.GoalTimeout
}

// =============================================================================
// Logger Implementation
// =============================================================================

type LoggerImpl struct {
	logger *logrus.Logger
}

func NewLogger(level string) interfaces.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return &LoggerImpl{logger: logger}
}

// NewLoggerWithOutput 출력 대상을 지정한 로거 (테스트용)
func NewLoggerWithOutput(level string, out io.Writer) interfaces.Logger {
	l := NewLogger(level).(*LoggerImpl)
	l.logger.SetOutput(out)
	return l
}

func (l *LoggerImpl) Debug(args ...interface{}) {
	l.logger.Debug(args...)
}

func (l *LoggerImpl) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

func (l *LoggerImpl) Info(args ...interface{}) {
	l.logger.Info(args...)
}

func (l *LoggerImpl) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *LoggerImpl) Warn(args ...interface{}) {
	l.logger.Warn(args...)
}

func (l *LoggerImpl) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *LoggerImpl) Error(args ...interface{}) {
	l.logger.Error(args...)
}

func (l *LoggerImpl) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *LoggerImpl) Fatal(args ...interface{}) {
	l.logger.Fatal(args...)
}

func (l *LoggerImpl) Fatalf(format string, args ...interface{}) {
	l.logger.Fatalf(format, args...)
}

// =============================================================================
// ID Generators Implementation
// =============================================================================

type HeaderIDGeneratorImpl struct {
	counter int64
}

func NewHeaderIDGenerator() interfaces.HeaderIDGenerator {
	return &HeaderIDGeneratorImpl{}
}

func (h *HeaderIDGeneratorImpl) GetNextHeaderID() int64 {
	return atomic.AddInt64(&h.counter, 1)
}
