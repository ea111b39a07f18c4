package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/agent"
)

const maxRequestBody = 64 << 10

type queryRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
	Msg       string `json:"msg" validate:"required,max=4000"`
}

type queryResponse struct {
	agent.TurnResult
	SessionID string `json:"session_id"`
}

type clearRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Msg = strings.TrimSpace(req.Msg)
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if !s.limiter.Allow(req.SessionID) {
		rateLimitedTotal.Inc()
		writeError(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	result, err := s.turns.HandleTurn(r.Context(), req.SessionID, req.Msg)
	if err != nil {
		var modelErr *agent.ModelError
		if errors.As(err, &modelErr) {
			s.logger.Warn("turn failed", zap.String("session_id", req.SessionID), zap.Bool("structural", modelErr.Structural), zap.Error(err))
			writeError(w, "model invocation failed", http.StatusBadGateway)
			return
		}
		s.logger.Error("turn failed", zap.String("session_id", req.SessionID), zap.Error(err))
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, queryResponse{TurnResult: result, SessionID: req.SessionID}, http.StatusOK)
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	result, err := s.turns.ClearSession(r.Context(), req.SessionID)
	if err != nil {
		s.logger.Error("clear session", zap.String("session_id", req.SessionID), zap.Error(err))
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, result, http.StatusOK)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return "invalid " + first.Field() + ": " + first.Tag()
	}
	return "invalid request"
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}
