// internal/models/robot_state.go
package models

// RobotStateMessage 로봇 상태 메시지 (state 토픽)
type RobotStateMessage struct {
	HeaderID           int64         `json:"headerId"`
	Timestamp          string        `json:"timestamp"`
	Version            string        `json:"version"`
	Manufacturer       string        `json:"manufacturer"`
	SerialNumber       string        `json:"serialNumber"`
	OrderID            string        `json:"orderId"`
	OrderUpdateID      int           `json:"orderUpdateId"`
	LastNodeID         string        `json:"lastNodeId"`
	LastNodeSequenceID int           `json:"lastNodeSequenceId"`
	Driving            bool          `json:"driving"`
	Paused             bool          `json:"paused"`
	OperatingMode      string        `json:"operatingMode"`
	NodeStates         []NodeState   `json:"nodeStates"`
	EdgeStates         []EdgeState   `json:"edgeStates"`
	ActionStates       []ActionState `json:"actionStates"`
	AgvPosition        *AgvPosition  `json:"agvPosition,omitempty"`
	Velocity           *Velocity     `json:"velocity,omitempty"`
	BatteryState       BatteryState  `json:"batteryState"`
	Errors             []ErrorInfo   `json:"errors"`
}

// ActionState 액션 상태 정보
type ActionState struct {
	ActionID          string `json:"actionId"`
	ActionType        string `json:"actionType"`
	ActionDescription string `json:"actionDescription,omitempty"`
	ActionStatus      string `json:"actionStatus"`
	ResultDescription string `json:"resultDescription,omitempty"`
}

// AgvPosition AGV 위치 정보
type AgvPosition struct {
	X                   float64 `json:"x"`
	Y                   float64 `json:"y"`
	Theta               float64 `json:"theta"`
	MapID               string  `json:"mapId"`
	PositionInitialized bool    `json:"positionInitialized"`
	LocalizationScore   float64 `json:"localizationScore,omitempty"`
}

// Velocity 속도 정보
type Velocity struct {
	Vx    float64 `json:"vx"`
	Vy    float64 `json:"vy"`
	Omega float64 `json:"omega"`
}

// BatteryState 배터리 상태 정보 (batteryCharge 는 퍼센트)
type BatteryState struct {
	BatteryCharge  float64 `json:"batteryCharge"`
	BatteryVoltage float64 `json:"batteryVoltage,omitempty"`
	Charging       bool    `json:"charging"`
}

// NodeState 노드 상태 정보
type NodeState struct {
	NodeID     string `json:"nodeId"`
	SequenceID int    `json:"sequenceId"`
	Released   bool   `json:"released"`
}

// EdgeState 엣지 상태 정보
type EdgeState struct {
	EdgeID     string `json:"edgeId"`
	SequenceID int    `json:"sequenceId"`
	Released   bool   `json:"released"`
}

// ErrorInfo 에러 정보
type ErrorInfo struct {
	ErrorType        string           `json:"errorType"`
	ErrorLevel       string           `json:"errorLevel"`
	ErrorDescription string           `json:"errorDescription,omitempty"`
	ErrorReferences  []ErrorReference `json:"errorReferences,omitempty"`
}

// ErrorReference 에러 참조 정보
type ErrorReference struct {
	ReferenceKey   string `json:"referenceKey"`
	ReferenceValue string `json:"referenceValue"`
}

// References 에러가 주어진 키/값을 참조하는지 확인
func (e ErrorInfo) References(key, value string) bool {
	for _, ref := range e.ErrorReferences {
		if ref.ReferenceKey == key && ref.ReferenceValue == value {
			return true
		}
	}
	return false
}
