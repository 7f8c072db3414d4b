// internal/common/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable 외부 협력 서비스(시뮬레이터, 브로커 등)가 응답하지 않음
var ErrServiceUnavailable = errors.New("service unavailable")

// ErrNotFound 조회 대상이 없음
var ErrNotFound = errors.New("not found")

// ServiceError represents a failed call into an external collaborator.
// It is always recoverable: callers log it and continue with degraded data.
type ServiceError struct {
	Service   string
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s: %s failed", e.Service, e.Operation)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError ServiceError 생성. cause 가 nil 이면 ErrServiceUnavailable 로 감싼다.
func NewServiceError(service, operation string, cause error) *ServiceError {
	if cause == nil {
		cause = ErrServiceUnavailable
	}
	return &ServiceError{Service: service, Operation: operation, Cause: cause}
}

// ObstacleNotFoundError is returned when removing a name the registry never issued
// or already removed.
type ObstacleNotFoundError struct {
	Name string
}

func (e *ObstacleNotFoundError) Error() string {
	return fmt.Sprintf("obstacle %s could not be found in the world", e.Name)
}

func (e *ObstacleNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConfigurationLoadError is fatal at startup.
type ConfigurationLoadError struct {
	Path  string
	Cause error
}

func (e *ConfigurationLoadError) Error() string {
	return fmt.Sprintf("failed to load configuration %s: %v", e.Path, e.Cause)
}

func (e *ConfigurationLoadError) Unwrap() error {
	return e.Cause
}

// GoalError describes a goal that did not finish with SUCCEEDED.
type GoalError struct {
	GoalID   string
	Status   string
	TimedOut bool
	Cause    error
}

func (e *GoalError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("goal %s timed out in %s", e.GoalID, e.Status)
	case e.Cause != nil:
		return fmt.Sprintf("goal %s failed in %s: %v", e.GoalID, e.Status, e.Cause)
	default:
		return fmt.Sprintf("goal %s finished with %s", e.GoalID, e.Status)
	}
}

func (e *GoalError) Unwrap() error {
	return e.Cause
}

// IsServiceError ServiceError 여부 확인
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
