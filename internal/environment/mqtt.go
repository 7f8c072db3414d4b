// internal/environment/mqtt.go
package environment

import (
	"context"
	"fmt"
	"time"

	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/common/constants"
	"cp1-controllers/internal/common/idgen"
	"cp1-controllers/internal/interfaces"
	"cp1-controllers/internal/models"

	json "github.com/json-iterator/go"
)

const serviceName = "simulator"

// PoseReader 최근 로봇 위치 조회 (state 토픽 캐시)
type PoseReader interface {
	GetPose(ctx context.Context) (Pose, error)
}

// MQTTEnvironment 시뮬레이터 협력 서비스를 instantActions 메시지로 호출
type MQTTEnvironment struct {
	publisher interfaces.MessagePublisher
	config    interfaces.ConfigProvider
	headers   interfaces.HeaderIDGenerator
	ids       *idgen.Generator
	poses     PoseReader
	logger    interfaces.Logger
}

// NewMQTTEnvironment 새 MQTT 환경 생성
func NewMQTTEnvironment(
	publisher interfaces.MessagePublisher,
	config interfaces.ConfigProvider,
	headers interfaces.HeaderIDGenerator,
	poses PoseReader,
	logger interfaces.Logger,
) *MQTTEnvironment {
	return &MQTTEnvironment{
		publisher: publisher,
		config:    config,
		headers:   headers,
		ids:       idgen.NewGenerator(),
		poses:     poses,
		logger:    logger,
	}
}

// GetPose 캐시된 state 메시지 기준 위치
func (e *MQTTEnvironment) GetPose(ctx context.Context) (Pose, error) {
	pose, err := e.poses.GetPose(ctx)
	if err != nil {
		return UnknownPose(), apperror.NewServiceError(serviceName, "getPose", err)
	}
	return pose, nil
}

// SetPose initPosition 액션 전송
func (e *MQTTEnvironment) SetPose(ctx context.Context, x, y, yaw float64) error {
	return e.sendInstantAction(ctx, constants.ActionTypeInitPosition, []models.ActionParameter{
		{Key: "x", Value: x},
		{Key: "y", Value: y},
		{Key: "theta", Value: yaw},
		{Key: "mapId", Value: e.config.GetMapID()},
		{Key: "lastNodeId", Value: ""},
	})
}

// Spawn spawnModel 액션 전송
func (e *MQTTEnvironment) Spawn(ctx context.Context, name, model string, x, y float64) error {
	return e.sendInstantAction(ctx, constants.ActionTypeSpawnModel, []models.ActionParameter{
		{Key: "modelName", Value: name},
		{Key: "modelXml", Value: model},
		{Key: "x", Value: x},
		{Key: "y", Value: y},
		{Key: "z", Value: 0.0},
	})
}

// Delete deleteModel 액션 전송
func (e *MQTTEnvironment) Delete(ctx context.Context, name string) error {
	return e.sendInstantAction(ctx, constants.ActionTypeDeleteModel, []models.ActionParameter{
		{Key: "modelName", Value: name},
	})
}

func (e *MQTTEnvironment) SetCharge(ctx context.Context, value float64) error {
	return e.sendInstantAction(ctx, constants.ActionTypeSetCharge, []models.ActionParameter{
		{Key: "charge", Value: value},
	})
}

func (e *MQTTEnvironment) SetChargeRate(ctx context.Context, value float64) error {
	return e.sendInstantAction(ctx, constants.ActionTypeSetChargeRate, []models.ActionParameter{
		{Key: "chargeRate", Value: value},
	})
}

func (e *MQTTEnvironment) SetPowerLoad(ctx context.Context, value float64) error {
	return e.sendInstantAction(ctx, constants.ActionTypeSetPowerLoad, []models.ActionParameter{
		{Key: "powerLoad", Value: value},
	})
}

func (e *MQTTEnvironment) SetCharging(ctx context.Context, charging bool) error {
	return e.sendInstantAction(ctx, constants.ActionTypeSetCharging, []models.ActionParameter{
		{Key: "charging", Value: charging},
	})
}

func (e *MQTTEnvironment) GetConfiguration(ctx context.Context, configID int) error {
	return e.sendInstantAction(ctx, constants.ActionTypeGetConfiguration, []models.ActionParameter{
		{Key: "configId", Value: configID},
	})
}

// sendInstantAction 단일 instant action 메시지 발행
func (e *MQTTEnvironment) sendInstantAction(ctx context.Context, actionType string, params []models.ActionParameter) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewServiceError(serviceName, actionType, err)
	}
	if !e.publisher.IsConnected() {
		return apperror.NewServiceError(serviceName, actionType, nil)
	}

	msg := models.InstantActionsMessage{
		HeaderID:     e.headers.GetNextHeaderID(),
		Timestamp:    time.Now().Format(time.RFC3339Nano),
		Version:      constants.ProtocolVersion,
		Manufacturer: e.config.GetRobotManufacturer(),
		SerialNumber: e.config.GetRobotSerialNumber(),
		Actions: []models.Action{{
			ActionType:       actionType,
			ActionID:         e.ids.ActionID(),
			BlockingType:     constants.BlockingTypeNone,
			ActionParameters: params,
		}},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s action: %w", actionType, err)
	}

	topic := constants.RobotTopic(e.config.GetTopicPrefix(), msg.Manufacturer, msg.SerialNumber,
		constants.TopicSuffixInstantActions)
	if err := e.publisher.Publish(topic, 1, false, data); err != nil {
		return apperror.NewServiceError(serviceName, actionType, err)
	}

	e.logger.Debugf("📤 %s sent to %s", actionType, topic)
	return nil
}
