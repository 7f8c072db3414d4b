// internal/models/mission.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// MissionRecord 미션 실행 요약 (DB 저장용)
type MissionRecord struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	MissionID        string  `gorm:"size:64;not null;uniqueIndex" json:"mission_id"`
	Scenario         string  `gorm:"size:50;not null;index" json:"scenario"`
	ConfigurationID  int     `json:"configuration_id"`
	TasksTotal       int     `json:"tasks_total"`
	TasksCompleted   int     `json:"tasks_completed"`
	PredictedSeconds float64 `json:"predicted_seconds"`
	ActualSeconds    float64 `json:"actual_seconds"`
	FinalCharge      float64 `json:"final_charge"`
	BatteryLow       bool    `json:"battery_low"`

	// 최종 위치
	FinalX           *float64 `json:"final_x"`
	FinalY           *float64 `json:"final_y"`
	DistanceToTarget *float64 `json:"distance_to_target"`

	StartedAt  time.Time `gorm:"not null" json:"started_at"`
	FinishedAt time.Time `gorm:"not null" json:"finished_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	// 관계
	Attempts []WaypointAttempt `gorm:"foreignKey:MissionRecordID" json:"attempts"`
}

// WaypointAttempt 웨이포인트별 목표 실행 결과
type WaypointAttempt struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MissionRecordID uint      `gorm:"not null;index" json:"mission_record_id"`
	Sequence        int       `gorm:"not null" json:"sequence"`
	Waypoint        string    `gorm:"size:50" json:"waypoint"`
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	GoalID          string    `gorm:"size:64" json:"goal_id"`
	Status          string    `gorm:"size:20;not null" json:"status"`
	TimedOut        bool      `json:"timed_out"`
	ElapsedSeconds  float64   `json:"elapsed_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}
