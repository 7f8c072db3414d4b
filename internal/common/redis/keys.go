// internal/common/redis/keys.go
package redis

import "fmt"

// Redis Key Patterns Redis 키 패턴 상수
const (
	// 배터리 스냅샷 (hash)
	BatteryStatePattern = "battery_state:%s"

	// 최신 로봇 위치/속도 (hash)
	RobotPosePattern = "robot_pose:%s"

	// 배치된 장애물 이름 집합 (set)
	ObstaclesPattern = "obstacles:%s"

	// 장애물 좌표 (hash)
	ObstaclePattern = "obstacle:%s:%s"
)

// BatteryState 배터리 스냅샷 키 생성
func BatteryState(serialNumber string) string {
	return fmt.Sprintf(BatteryStatePattern, serialNumber)
}

// RobotPose 로봇 위치 키 생성
func RobotPose(serialNumber string) string {
	return fmt.Sprintf(RobotPosePattern, serialNumber)
}

// Obstacles 장애물 집합 키 생성
func Obstacles(world string) string {
	return fmt.Sprintf(ObstaclesPattern, world)
}

// Obstacle 장애물 좌표 키 생성
func Obstacle(world, name string) string {
	return fmt.Sprintf(ObstaclePattern, world, name)
}
