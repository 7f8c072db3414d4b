// internal/common/constants/status.go
package constants

// VDA5050 protocol version sent in every header
const ProtocolVersion = "2.0.0"

// Action Status 액션 상태 상수
const (
	ActionStatusWaiting      = "WAITING"
	ActionStatusInitializing = "INITIALIZING"
	ActionStatusRunning      = "RUNNING"
	ActionStatusPaused       = "PAUSED"
	ActionStatusFinished     = "FINISHED"
	ActionStatusFailed       = "FAILED"
)

// Blocking Type 블로킹 타입 상수
const (
	BlockingTypeNone = "NONE"
	BlockingTypeSoft = "SOFT"
	BlockingTypeHard = "HARD"
)

// Error Level 에러 레벨 상수
const (
	ErrorLevelWarning = "WARNING"
	ErrorLevelFatal   = "FATAL"
)

// Error Type 중 오더 거부를 의미하는 타입
const (
	ErrorTypeOrder           = "orderError"
	ErrorTypeOrderUpdate     = "orderUpdateError"
	ErrorTypeValidation      = "validationError"
	ErrorTypeNoRouteFound    = "noRouteError"
	ErrorReferenceKeyOrderID = "orderId"
)

// Action Type 액션 타입 상수
const (
	ActionTypeInitPosition     = "initPosition"
	ActionTypeCancelOrder      = "cancelOrder"
	ActionTypeInstructionGraph = "instructionGraph"
	ActionTypeSpawnModel       = "spawnModel"
	ActionTypeDeleteModel      = "deleteModel"
	ActionTypeSetCharge        = "setCharge"
	ActionTypeSetChargeRate    = "setChargeRate"
	ActionTypeSetPowerLoad     = "setPowerLoad"
	ActionTypeSetCharging      = "setCharging"
	ActionTypeGetConfiguration = "getConfiguration"
)

// MQTT topic suffixes
const (
	TopicSuffixOrder          = "order"
	TopicSuffixInstantActions = "instantActions"
	TopicSuffixState          = "state"
)

// RobotTopic {prefix}/{manufacturer}/{serial}/{suffix}
func RobotTopic(prefix, manufacturer, serialNumber, suffix string) string {
	return prefix + "/" + manufacturer + "/" + serialNumber + "/" + suffix
}

// Mission event types
const (
	EventMissionStarted   = "mission.started"
	EventMissionCompleted = "mission.completed"
)
