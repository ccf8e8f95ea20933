package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/richinex/taskchat/agent"
	"github.com/richinex/taskchat/storage"
)

// Client-facing messages.
const (
	msgMessageRequired = "Message is required in request body"
	msgInvalidJSON     = "Invalid JSON in request body"
	msgProcessingError = "Error processing request"
)

const maxRequestBody = 1 << 20

type chatRequest struct {
	Message string `json:"message"`
}

type chatReply struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// --- Chat ---

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req)
	if errors.Is(err, io.EOF) {
		s.messageResponse(w, http.StatusBadRequest, msgMessageRequired)
		return
	}
	if err != nil {
		s.messageResponse(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	status, reply := s.exchange(r.Context(), req.Message)
	s.jsonResponse(w, status, reply)
}

// exchange runs one message through the responder and maps the outcome
// to a status code and reply body.
func (s *Server) exchange(ctx context.Context, message string) (int, chatReply) {
	resp, err := s.responder.Respond(ctx, message)

	// An empty message never reached the provider; nothing to record.
	if errors.Is(err, agent.ErrEmptyMessage) {
		return http.StatusBadRequest, chatReply{Message: msgMessageRequired}
	}

	s.record(ctx, message, resp, err)

	if err != nil {
		s.logger.Error("AI Error", "request_id", RequestID(ctx), "error", err)
		return http.StatusInternalServerError, chatReply{Message: msgProcessingError, Error: err.Error()}
	}
	return http.StatusOK, chatReply{Message: resp.Text}
}

func (s *Server) record(ctx context.Context, message string, resp agent.Response, err error) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if recErr := s.store.Record(ctx, agent.NewTranscript(message, resp, err)); recErr != nil {
		s.logger.Warn("Failed to record exchange", "request_id", RequestID(ctx), "error", recErr)
	}
}

// --- Exchanges ---

func (s *Server) handleListExchanges(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.messageResponse(w, http.StatusNotFound, "Exchange log is disabled")
		return
	}

	limit := storage.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.messageResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	transcripts, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list exchanges", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, chatReply{Message: msgProcessingError, Error: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, transcripts)
}

func (s *Server) handleGetExchange(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.messageResponse(w, http.StatusNotFound, "Exchange log is disabled")
		return
	}

	transcript, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrTranscriptNotFound) {
		s.messageResponse(w, http.StatusNotFound, "Exchange not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to get exchange", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, chatReply{Message: msgProcessingError, Error: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, transcript)
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
