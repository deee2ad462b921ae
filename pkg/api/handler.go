package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ShiftReader interface {
	FindByKey(ctx context.Context, shiftKey string) (*types.WorkShift, error)
	ListActive(ctx context.Context) ([]types.WorkShift, error)
	ListByMachine(ctx context.Context, machineID string, status types.ShiftStatus) ([]types.WorkShift, error)
}

type MachineLister interface {
	Machines() []types.Machine
	Machine(machineID string) (types.Machine, bool)
}

type Handler struct {
	Shifts   ShiftReader
	Machines MachineLister
	logger   *zap.Logger
}

func NewHandler(shifts ShiftReader, machines MachineLister, logger *zap.Logger) *Handler {
	return &Handler{
		Shifts:   shifts,
		Machines: machines,
		logger:   logger.With(zap.String("component", "api")),
	}
}

/*
pattern: /
method: GET
info: service status
*/
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Filling Machine Shift Tracker API",
		"status":  "running",
	})
}

/*
pattern: /machines
method: GET
info: configured machines with their connection state
*/
func (h *Handler) GetMachines(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.Machines.Machines())
}

/*
pattern: /shifts/active
method: GET
info: every active shift, sorted by machine number then shift sequence
*/
func (h *Handler) GetActiveShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.Shifts.ListActive(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, shifts)
}

/*
pattern: /shifts/{shiftKey}
method: GET
failed:
  - status code: 404 not found - no shift with that key
*/
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shiftKey := chi.URLParam(r, "shiftKey")
	ws, err := h.Shifts.FindByKey(r.Context(), shiftKey)
	if errors.Is(err, types.ErrShiftNotFound) {
		respondWithError(w, http.StatusNotFound, "work shift not found")
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ws)
}

/*
pattern: /machines/{machineId}/shifts
method: GET
query: status (optional)
failed:
  - status code: 400 bad request - unknown status
  - status code: 404 not found - machine is not configured
*/
func (h *Handler) GetMachineShifts(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineId")
	if _, ok := h.Machines.Machine(machineID); !ok {
		respondWithError(w, http.StatusNotFound, "machine not found")
		return
	}

	status := types.ShiftStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		respondWithError(w, http.StatusBadRequest, "invalid status")
		return
	}

	shifts, err := h.Shifts.ListByMachine(r.Context(), machineID, status)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, shifts)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
