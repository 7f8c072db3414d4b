// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cp1-controllers/internal/battery"
	"cp1-controllers/internal/common/apperror"
	"cp1-controllers/internal/environment"
	"cp1-controllers/internal/interfaces"
	"cp1-controllers/internal/obstacle"
	"cp1-controllers/internal/repository"

	"github.com/gorilla/mux"
	json "github.com/json-iterator/go"
)

// BatteryReader 배터리 스냅샷 조회
type BatteryReader interface {
	Snapshot() battery.Snapshot
}

// ObstacleRegistry 장애물 배치/제거
type ObstacleRegistry interface {
	Place(ctx context.Context, x, y float64) (string, error)
	Remove(ctx context.Context, name string) error
	Records() []obstacle.Record
}

// Handler 상태 API 핸들러
type Handler struct {
	battery   BatteryReader
	obstacles ObstacleRegistry
	poses     environment.PoseService
	missions  repository.MissionRepository
	logger    interfaces.Logger
	started   time.Time
}

// NewHandler 새 API 핸들러 생성. missions 는 nil 일 수 있음 (MISSION_STORE=none)
func NewHandler(
	battery BatteryReader,
	obstacles ObstacleRegistry,
	poses environment.PoseService,
	missions repository.MissionRepository,
	logger interfaces.Logger,
) *Handler {
	return &Handler{
		battery:   battery,
		obstacles: obstacles,
		poses:     poses,
		missions:  missions,
		logger:    logger,
		started:   time.Now(),
	}
}

// HealthCheck 서비스 상태
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SuccessResponse("Service is healthy", map[string]interface{}{
		"service":   "cp1-controllers",
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().Unix(),
	}))
}

// GetBattery 최신 배터리 스냅샷
func (h *Handler) GetBattery(w http.ResponseWriter, r *http.Request) {
	snap := h.battery.Snapshot()
	writeJSON(w, http.StatusOK, SuccessResponse("Battery state retrieved successfully", map[string]interface{}{
		"charge":           snap.Charge,
		"capacity":         snap.Capacity,
		"low_charge_level": snap.LowChargeLevel(),
		"is_low":           snap.IsLow,
		"known":            snap.Known,
		"updated_at":       snap.UpdatedAt,
	}))
}

// GetPose 현재 로봇 위치
func (h *Handler) GetPose(w http.ResponseWriter, r *http.Request) {
	pose, err := h.poses.GetPose(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse("Robot pose retrieved successfully", pose))
}

// ListObstacles 배치된 장애물 목록
func (h *Handler) ListObstacles(w http.ResponseWriter, r *http.Request) {
	records := h.obstacles.Records()
	writeJSON(w, http.StatusOK, SuccessResponse("Obstacles retrieved successfully", map[string]interface{}{
		"obstacles": records,
		"count":     len(records),
	}))
}

// PlaceObstacleRequest 장애물 배치 요청
type PlaceObstacleRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// PlaceObstacle 지정 좌표에 장애물 배치
func (h *Handler) PlaceObstacle(w http.ResponseWriter, r *http.Request) {
	var req PlaceObstacleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse("Invalid request body: "+err.Error()))
		return
	}
	if req.X == nil || req.Y == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse("x and y are required"))
		return
	}

	name, err := h.obstacles.Place(r.Context(), *req.X, *req.Y)
	if err != nil {
		writeJSON(w, statusFor(err), ErrorResponse("Failed to place obstacle: "+err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, SuccessResponse("Obstacle placed", map[string]interface{}{
		"name": name,
		"x":    *req.X,
		"y":    *req.Y,
	}))
}

// RemoveObstacle 이름으로 장애물 제거
func (h *Handler) RemoveObstacle(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.obstacles.Remove(r.Context(), name); err != nil {
		writeJSON(w, statusFor(err), ErrorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse("Obstacle removed", map[string]interface{}{"name": name}))
}

// ListMissions 최근 미션 기록
func (h *Handler) ListMissions(w http.ResponseWriter, r *http.Request) {
	if h.missions == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse("mission store is disabled"))
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse("Invalid limit"))
			return
		}
		limit = v
	}

	records, err := h.missions.ListRecent(r.Context(), r.URL.Query().Get("scenario"), limit)
	if err != nil {
		h.logger.Errorf("Failed to list missions: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse("Missions retrieved successfully", map[string]interface{}{
		"missions": records,
		"count":    len(records),
	}))
}

// GetMission 미션 상세 (웨이포인트 결과 포함)
func (h *Handler) GetMission(w http.ResponseWriter, r *http.Request) {
	if h.missions == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse("mission store is disabled"))
		return
	}
	record, err := h.missions.FindByMissionID(r.Context(), mux.Vars(r)["missionId"])
	if err != nil {
		writeJSON(w, statusFor(err), ErrorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse("Mission retrieved successfully", record))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case apperror.IsServiceError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
