package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/taskdep/internal/domain"
	"github.com/shaiso/taskdep/internal/mq"
	"github.com/shaiso/taskdep/internal/orchestrator"
	"github.com/shaiso/taskdep/internal/repo"
)

// maxBodyBytes — ограничение размера тела запроса.
const maxBodyBytes = 1 << 20

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?graph=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		Unavailable(w, "run history is not configured")
		return
	}

	query := r.URL.Query()
	filter := repo.RunFilter{Graph: query.Get("graph")}

	if s := query.Get("status"); s != "" {
		status, ok := domain.ParseRunStatus(strings.ToUpper(s))
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	var err error
	if filter.Limit, err = intParam(query.Get("limit")); err != nil {
		BadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(query.Get("offset")); err != nil {
		BadRequest(w, "invalid offset")
		return
	}

	runs, err := h.runs.List(r.Context(), filter.Normalize())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		Unavailable(w, "run history is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// CreateRun выполняет граф.
// POST /api/v1/runs
//
// Синхронный запуск отвечает 201 с финальным run, в том числе FAILED
// при ошибке действия. Цикл — 422, некорректный граф или корень — 400.
// С "async": true граф ставится в очередь, ответ 202 с message_id.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decodeBody(w, r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if req.Spec == nil {
		BadRequest(w, "spec is required")
		return
	}

	if req.Async {
		h.enqueueRun(w, r, req)
		return
	}

	run, err := h.runner.Run(r.Context(), orchestrator.RunRequest{
		Spec:   req.Spec,
		Root:   req.Root,
		Inputs: req.Inputs,
		DryRun: req.DryRun,
	})
	if HandleGraphError(w, h.logger, err) {
		return
	}

	Created(w, RunFromDomain(*run))
}

// enqueueRun публикует run.requested для Worker.
func (h *Handler) enqueueRun(w http.ResponseWriter, r *http.Request, req CreateRunRequest) {
	if h.queue == nil {
		Unavailable(w, "run queue is not configured")
		return
	}

	// Невалидный граф отклоняем сразу, а не в Worker.
	if _, err := h.runner.Plan(req.Spec, req.Root); HandleGraphError(w, h.logger, err) {
		return
	}

	msgID, err := h.queue.PublishRunRequested(r.Context(), mq.RunRequestedPayload{
		Spec:   req.Spec,
		Root:   req.Root,
		Inputs: req.Inputs,
		DryRun: req.DryRun,
	})
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("run enqueued", "message_id", msgID, "graph", req.Spec.Name)

	Accepted(w, QueuedRunResponse{MessageID: msgID})
}

// decodeBody читает тело запроса как JSON или, при Content-Type с "yaml", как YAML.
// Неизвестные поля отклоняются так же, как engine.Parse: опечатка в
// depends_on не должна молча убирать зависимость.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}

	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		dec := yaml.NewDecoder(bytes.NewReader(body))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("invalid request body: %w", err)
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// intParam парсит неотрицательный целый query-параметр. Пустая строка — 0.
func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}
