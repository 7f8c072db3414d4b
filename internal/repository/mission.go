// internal/repository/mission.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/models"

	"gorm.io/gorm"
)

// MissionRepository 미션 실행 기록 저장소
type MissionRepository interface {
	Save(ctx context.Context, record *models.MissionRecord) error
	FindByMissionID(ctx context.Context, missionID string) (*models.MissionRecord, error)
	ListRecent(ctx context.Context, scenario string, limit int) ([]models.MissionRecord, error)
}

type gormMissionRepository struct {
	db *gorm.DB
}

// NewMissionRepository gorm 기반 미션 저장소 생성
func NewMissionRepository(db *gorm.DB) MissionRepository {
	return &gormMissionRepository{db: db}
}

// Save 미션 기록과 웨이포인트 결과를 하나의 트랜잭션으로 저장
func (r *gormMissionRepository) Save(ctx context.Context, record *models.MissionRecord) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(record).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save mission %s: %w", record.MissionID, err)
	}
	return nil
}

// FindByMissionID 미션 ID로 조회 (웨이포인트 결과 포함)
func (r *gormMissionRepository) FindByMissionID(ctx context.Context, missionID string) (*models.MissionRecord, error) {
	var record models.MissionRecord
	err := r.db.WithContext(ctx).
		Preload("Attempts", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Where("mission_id = ?", missionID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("mission %s: %w", missionID, apperror.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get mission %s: %w", missionID, err)
	}
	return &record, nil
}

// ListRecent 최근 미션 목록 (scenario 가 비어 있으면 전체)
func (r *gormMissionRepository) ListRecent(ctx context.Context, scenario string, limit int) ([]models.MissionRecord, error) {
	var records []models.MissionRecord
	query := r.db.WithContext(ctx).Order("started_at DESC")
	if scenario != "" {
		query = query.Where("scenario = ?", scenario)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	return records, nil
}
