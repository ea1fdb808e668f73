package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/taskdep/internal/engine"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/repo"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeCyclicDependency   ErrorCode = "CYCLIC_DEPENDENCY"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	TaskID  string    `json:"task_id,omitempty"`
	Field   string    `json:"field,omitempty"`
	Cycle   []string  `json:"cycle,omitempty"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// Accepted отправляет ответ о принятии запроса в обработку (202).
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeError(w, status, ErrorDetail{Code: code, Message: message})
}

func writeError(w http.ResponseWriter, status int, detail ErrorDetail) {
	JSON(w, status, ErrorResponse{Error: detail})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// Unavailable отправляет ошибку 503.
func Unavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleRepoError преобразует ошибку репозитория в HTTP ответ.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, repo.ErrNotFound) {
		NotFound(w, notFoundMsg)
		return true
	}

	InternalError(w, logger, err)
	return true
}

// HandleGraphError отвечает на ошибку построения или обхода графа:
// некорректный граф или корень — 400, цикл — 422 с путём цикла.
// Для nil и ошибок действий задач ничего не пишет и возвращает false.
func HandleGraphError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil || orchestrator.IsExecutionFailure(err) {
		return false
	}

	status, detail, ok := graphErrorDetail(err)
	if !ok {
		InternalError(w, logger, err)
		return true
	}

	writeError(w, status, detail)
	return true
}

// graphErrorDetail сопоставляет ошибке графа HTTP статус и тело ответа.
func graphErrorDetail(err error) (int, ErrorDetail, bool) {
	detail := ErrorDetail{Message: err.Error()}

	var cycleErr *engine.CycleError
	if errors.As(err, &cycleErr) {
		detail.Code = ErrCodeCyclicDependency
		detail.Cycle = cycleErr.Path
		return http.StatusUnprocessableEntity, detail, true
	}

	if !orchestrator.IsInvalidRequest(err) {
		return 0, detail, false
	}

	detail.Code = ErrCodeValidation
	var vErr *engine.ValidationError
	if errors.As(err, &vErr) {
		detail.TaskID = vErr.TaskID
		detail.Field = vErr.Field
	}
	return http.StatusBadRequest, detail, true
}
