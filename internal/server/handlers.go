package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/orchestrator"
)

// assessRequest is the body of POST /api/load-test. At least one field must be
// set; the engine enforces that, the tags only check shape.
type assessRequest struct {
	TestURL    string `json:"testURL" validate:"omitempty,url,max=2048"`
	GithubRepo string `json:"githubRepo" validate:"omitempty,max=2048"`
}

// assessResponse flattens the session and adds whether it was persisted.
type assessResponse struct {
	*schemas.TestSession
	Stored bool `json:"stored"`
}

type transcriptRequest struct {
	Role    schemas.ChatRole `json:"role" validate:"required,oneof=user bot"`
	Content string           `json:"content" validate:"required,max=8000"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var body assessRequest
	if !s.decode(w, r, &body) {
		return
	}

	res, err := s.assessor.RunAssessment(r.Context(), orchestrator.Request{
		TargetURL: body.TestURL,
		RepoURL:   body.GithubRepo,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !res.Stored() {
		s.logger.Warn("Returning an unsaved session.", zap.String("session_id", res.Session.ID), zap.Error(res.StorageErr))
	}
	writeJSON(w, http.StatusOK, assessResponse{TestSession: res.Session, Stored: res.Stored()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAppendTranscript(w http.ResponseWriter, r *http.Request) {
	var body transcriptRequest
	if !s.decode(w, r, &body) {
		return
	}
	msg := schemas.ChatMessage{
		Role:      body.Role,
		Content:   strings.TrimSpace(body.Content),
		CreatedAt: s.now().UTC(),
	}
	if err := s.sessions.AppendTranscript(r.Context(), mux.Vars(r)["id"], msg); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: schemas.ErrValidation.Error(), Details: details})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schemas.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, schemas.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("Request failed.", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
