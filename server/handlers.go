package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/aseangps/agenthub/agent"
	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/magentic"
)

type chatRequest struct {
	SessionID   string `json:"session_id"`
	Prompt      string `json:"prompt"`
	AccessToken string `json:"access_token,omitempty"`
}

type reviewRequest struct {
	SessionID string `json:"session_id"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
}

// handleChat runs a prompt to completion and returns the final answer in the
// response body. Intermediate events are captured locally and never reach the
// session's websocket connections.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, errors.New("prompt is required"))
		return
	}

	answer, err := s.Adapter.HandleSync(r.Context(), req.SessionID, req.Prompt, req.AccessToken)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrBusy) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": req.SessionID,
		"answer":     answer,
	})
}

// handleReview resolves a parked plan review. The continuation is dispatched
// asynchronously; its events reach the caller over the session's websocket
// connections.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if s.Engine == nil {
		writeError(w, http.StatusNotFound, errors.New("plan review is not enabled"))
		return
	}
	var req reviewRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}
	if req.Decision != "approve" && req.Decision != "reject" {
		writeError(w, http.StatusBadRequest, errors.New(`decision must be "approve" or "reject"`))
		return
	}

	pending, err := s.Engine.ReviewPending(req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !pending {
		writeError(w, http.StatusConflict, errors.New("no plan awaiting review for session"))
		return
	}

	log := logging.FromContext(r.Context())
	go func(req reviewRequest) {
		ctx := context.Background()
		var err error
		if req.Decision == "approve" {
			err = s.Engine.Approve(ctx, req.SessionID)
		} else {
			err = s.Engine.Reject(ctx, req.SessionID, req.Reason)
		}
		// A rejected plan may re-plan and park for review again; that is
		// not a failure of the continuation.
		if err != nil && !errors.Is(err, magentic.ErrPlanPending) {
			log.Warn("review continuation failed", "session_id", req.SessionID, "decision", req.Decision, "error", err)
		}
	}(req)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id": req.SessionID,
		"decision":   req.Decision,
	})
}
