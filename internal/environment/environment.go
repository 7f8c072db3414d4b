// internal/environment/environment.go
package environment

import (
	"context"
	"math"

	"cp1-controllers/internal/interfaces"
)

// Pose 로봇 위치 스냅샷. Valid 가 false 이면 모든 값은 알 수 없음(NaN).
type Pose struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Yaw            float64 `json:"yaw"`
	LinearVelocity float64 `json:"linear_velocity"`
	Valid          bool    `json:"valid"`
}

// UnknownPose 위치 조회 실패 시 반환되는 센티넬
func UnknownPose() Pose {
	nan := math.NaN()
	return Pose{X: nan, Y: nan, Yaw: nan, LinearVelocity: nan}
}

// PoseService 위치 조회/설정
type PoseService interface {
	GetPose(ctx context.Context) (Pose, error)
	SetPose(ctx context.Context, x, y, yaw float64) error
}

// EntityService 월드 엔티티(장애물) 생성/삭제
type EntityService interface {
	Spawn(ctx context.Context, name, model string, x, y float64) error
	Delete(ctx context.Context, name string) error
}

// PowerService 배터리/전력 제어. 모두 fire-and-forget 이며 nil 에러가 acknowledgement.
type PowerService interface {
	SetCharge(ctx context.Context, value float64) error
	SetChargeRate(ctx context.Context, value float64) error
	SetPowerLoad(ctx context.Context, value float64) error
	SetCharging(ctx context.Context, charging bool) error
	GetConfiguration(ctx context.Context, configID int) error
}

// Environment 시뮬레이터 협력 서비스 전체
type Environment interface {
	PoseService
	EntityService
	PowerService
}

// PoseOrUnknown reads the pose and degrades to UnknownPose on failure.
func PoseOrUnknown(ctx context.Context, svc PoseService, logger interfaces.Logger) Pose {
	pose, err := svc.GetPose(ctx)
	if err != nil {
		logger.Errorf("Failed to read robot pose: %v", err)
		return UnknownPose()
	}
	return pose
}

// Acknowledge logs a failed setter and reports whether it was acknowledged.
func Acknowledge(logger interfaces.Logger, operation string, err error) bool {
	if err != nil {
		logger.Errorf("%s failed: %v", operation, err)
		return false
	}
	return true
}
