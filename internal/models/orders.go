// internal/models/orders.go
package models

import "cp1-controllers/internal/common/types"

// OrderMessage 로봇에 전송하는 오더 메시지 (order 토픽)
type OrderMessage struct {
	HeaderID      int64       `json:"headerId"`
	Timestamp     string      `json:"timestamp"`
	Version       string      `json:"version"`
	Manufacturer  string      `json:"manufacturer"`
	SerialNumber  string      `json:"serialNumber"`
	OrderID       string      `json:"orderId"`
	OrderUpdateID int         `json:"orderUpdateId"`
	Nodes         []OrderNode `json:"nodes"`
	Edges         []OrderEdge `json:"edges"`
}

// OrderNode 오더 노드
type OrderNode struct {
	NodeID       string        `json:"nodeId"`
	SequenceID   int           `json:"sequenceId"`
	Released     bool          `json:"released"`
	NodePosition *NodePosition `json:"nodePosition,omitempty"`
	Actions      []Action      `json:"actions"`
}

// NodePosition 노드 위치
type NodePosition struct {
	X                  types.Float64 `json:"x"`
	Y                  types.Float64 `json:"y"`
	Theta              types.Float64 `json:"theta"`
	AllowedDeviationXY types.Float64 `json:"allowedDeviationXY"`
	MapID              string        `json:"mapId"`
}

// OrderEdge 오더 엣지
type OrderEdge struct {
	EdgeID      string   `json:"edgeId"`
	SequenceID  int      `json:"sequenceId"`
	Released    bool     `json:"released"`
	StartNodeID string   `json:"startNodeId"`
	EndNodeID   string   `json:"endNodeId"`
	Actions     []Action `json:"actions"`
}

// Action 액션 정의 (오더 노드 및 instantActions 공용)
type Action struct {
	ActionType        string            `json:"actionType"`
	ActionID          string            `json:"actionId"`
	ActionDescription string            `json:"actionDescription,omitempty"`
	BlockingType      string            `json:"blockingType"`
	ActionParameters  []ActionParameter `json:"actionParameters"`
}

// ActionParameter 액션 파라미터
type ActionParameter struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// InstantActionsMessage instantActions 토픽 메시지
type InstantActionsMessage struct {
	HeaderID     int64    `json:"headerId"`
	Timestamp    string   `json:"timestamp"`
	Version      string   `json:"version"`
	Manufacturer string   `json:"manufacturer"`
	SerialNumber string   `json:"serialNumber"`
	Actions      []Action `json:"actions"`
}
