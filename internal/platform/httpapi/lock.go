// Package httpapi exposes the two control-plane routes spec.md names:
// setting and inspecting the LLM lock. Deliberately thin — it's two routes
// with no routing/middleware complexity that would warrant a router
// library, mirroring how thin the teacher's own interface layer is for
// similarly small HTTP surfaces.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jinford/workspace-rag/internal/core/ingest"
)

// LockHandler serves PUT /lock and GET /lock against a LockCoordinator.
type LockHandler struct {
	lock *ingest.LockCoordinator
}

// NewLockHandler builds a LockHandler over the given coordinator.
func NewLockHandler(lock *ingest.LockCoordinator) *LockHandler {
	return &LockHandler{lock: lock}
}

// Register mounts the handler's routes on mux.
func (h *LockHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/lock", h.handle)
}

type setLockRequest struct {
	Reason    string `json:"reason"`
	TTLSecond int    `json:"ttl_seconds"`
}

type lockStatusResponse struct {
	Locked           bool   `json:"locked"`
	Reason           string `json:"reason,omitempty"`
	RemainingSeconds int    `json:"remaining_seconds,omitempty"`
}

func (h *LockHandler) handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.setLock(w, r)
	case http.MethodGet:
		h.status(w, r)
	default:
		w.Header().Set("Allow", "GET, PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *LockHandler) setLock(w http.ResponseWriter, r *http.Request) {
	var req setLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ttl := time.Duration(req.TTLSecond) * time.Second
	h.lock.SetLock(req.Reason, ttl)

	w.WriteHeader(http.StatusNoContent)
}

func (h *LockHandler) status(w http.ResponseWriter, r *http.Request) {
	locked, reason, remaining := h.lock.Status()

	resp := lockStatusResponse{Locked: locked, Reason: reason}
	if locked {
		resp.RemainingSeconds = int(remaining.Seconds())
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
