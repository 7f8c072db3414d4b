// internal/api/response.go
package api

import (
	"net/http"

	json "github.com/json-iterator/go"
)

// StandardResponse 공통 응답 형식
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse 성공 응답 생성
func SuccessResponse(message string, data interface{}) StandardResponse {
	return StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

// ErrorResponse 에러 응답 생성
func ErrorResponse(message string) StandardResponse {
	return StandardResponse{
		Status:  "error",
		Message: message,
	}
}

func writeJSON(w http.ResponseWriter, status int, body StandardResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
