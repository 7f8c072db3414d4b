// internal/services/state_cache.go
package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"cp1-controllers/internal/battery"
	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/common/constants"
	"cp1-controllers/internal/common/redis"
	"cp1-controllers/internal/environment"
	"cp1-controllers/internal/interfaces"
	"cp1-controllers/internal/models"

	json "github.com/json-iterator/go"
)

// StateCache state 토픽의 최신 위치/속도를 Redis에 보관하고 배터리 스냅샷을 미러링
type StateCache struct {
	cache     interfaces.CacheService
	publisher interfaces.MessagePublisher
	config    interfaces.ConfigProvider
	logger    interfaces.Logger
}

// NewStateCache 새 상태 캐시 생성
func NewStateCache(
	cache interfaces.CacheService,
	publisher interfaces.MessagePublisher,
	config interfaces.ConfigProvider,
	logger interfaces.Logger,
) *StateCache {
	return &StateCache{
		cache:     cache,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

func (s *StateCache) stateTopic() string {
	return constants.RobotTopic(
		s.config.GetTopicPrefix(),
		s.config.GetRobotManufacturer(),
		s.config.GetRobotSerialNumber(),
		constants.TopicSuffixState,
	)
}

// Start state 토픽 구독 시작
func (s *StateCache) Start() error {
	if err := s.publisher.Subscribe(s.stateTopic(), 1, s.handleState); err != nil {
		return fmt.Errorf("subscribe state topic: %w", err)
	}
	return nil
}

// Stop state 토픽 구독 해제
func (s *StateCache) Stop() {
	if err := s.publisher.Unsubscribe(s.stateTopic()); err != nil {
		s.logger.Warnf("Failed to unsubscribe state topic: %v", err)
	}
}

func (s *StateCache) handleState(_ string, payload []byte) {
	var msg models.RobotStateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Errorf("Failed to unmarshal state message: %v", err)
		return
	}
	if msg.AgvPosition == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.SavePose(ctx, msg.AgvPosition, msg.Velocity); err != nil {
		s.logger.Warnf("Failed to cache robot pose: %v", err)
	}
}

// SavePose 위치/속도를 robot_pose 해시에 저장
func (s *StateCache) SavePose(ctx context.Context, pos *models.AgvPosition, vel *models.Velocity) error {
	speed := 0.0
	if vel != nil {
		speed = math.Hypot(vel.Vx, vel.Vy)
	}
	return s.cache.HSet(ctx, redis.RobotPose(s.config.GetRobotSerialNumber()), map[string]interface{}{
		"x":          formatFloat(pos.X),
		"y":          formatFloat(pos.Y),
		"yaw":        formatFloat(pos.Theta),
		"velocity":   formatFloat(speed),
		"map_id":     pos.MapID,
		"updated_at": time.Now().Format(time.RFC3339Nano),
	})
}

// GetPose 캐시된 최신 위치 조회
func (s *StateCache) GetPose(ctx context.Context) (environment.Pose, error) {
	fields, err := s.cache.HGetAll(ctx, redis.RobotPose(s.config.GetRobotSerialNumber()))
	if err != nil {
		return environment.UnknownPose(), fmt.Errorf("read cached pose: %w", err)
	}
	if len(fields) == 0 {
		return environment.UnknownPose(), fmt.Errorf("no pose received yet: %w", apperror.ErrNotFound)
	}

	pose := environment.Pose{Valid: true}
	for key, dst := range map[string]*float64{
		"x":        &pose.X,
		"y":        &pose.Y,
		"yaw":      &pose.Yaw,
		"velocity": &pose.LinearVelocity,
	} {
		v, err := strconv.ParseFloat(fields[key], 64)
		if err != nil {
			return environment.UnknownPose(), fmt.Errorf("cached pose field %s: %w", key, err)
		}
		*dst = v
	}
	return pose, nil
}

// SaveBattery 배터리 스냅샷을 battery_state 해시에 저장
func (s *StateCache) SaveBattery(ctx context.Context, snap battery.Snapshot) error {
	return s.cache.HSet(ctx, redis.BatteryState(s.config.GetRobotSerialNumber()), map[string]interface{}{
		"charge":     formatFloat(snap.Charge),
		"capacity":   formatFloat(snap.Capacity),
		"is_low":     strconv.FormatBool(snap.IsLow),
		"updated_at": snap.UpdatedAt.Format(time.RFC3339Nano),
	})
}

// LoadBattery 마지막으로 미러링된 배터리 스냅샷 조회
func (s *StateCache) LoadBattery(ctx context.Context) (battery.Snapshot, error) {
	fields, err := s.cache.HGetAll(ctx, redis.BatteryState(s.config.GetRobotSerialNumber()))
	if err != nil {
		return battery.Snapshot{}, fmt.Errorf("read cached battery: %w", err)
	}
	if len(fields) == 0 {
		return battery.Snapshot{}, fmt.Errorf("no battery snapshot cached: %w", apperror.ErrNotFound)
	}

	snap := battery.Snapshot{Known: true}
	snap.Charge, _ = strconv.ParseFloat(fields["charge"], 64)
	snap.Capacity, _ = strconv.ParseFloat(fields["capacity"], 64)
	snap.IsLow, _ = strconv.ParseBool(fields["is_low"])
	snap.UpdatedAt, _ = time.Parse(time.RFC3339Nano, fields["updated_at"])
	return snap, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
