package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/koscakluka/ema-cookbook/core/dialog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// maxBodySize bounds request bodies, utterances are short.
const maxBodySize = 64 << 10

type replyResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
	Reply string `json:"reply,omitempty"`
	Text  string `json:"text,omitempty"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type textRequest struct {
	Query string `json:"query"`
}

type textResponse struct {
	Text  string `json:"text"`
	Audio string `json:"audio"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.sessionID(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, struct{ Title string }{Title: "Voice Cookbook"}); err != nil {
		logger.ErrorContext(r.Context(), "failed to render index", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	turn := s.assistant.Start(r.Context(), id)
	writeJSON(w, http.StatusOK, replyResponse{Reply: turn.Reply})
}

// handleChat runs one turn. A missing or malformed body counts as an empty
// message, which the conversation answers with a clarifying reply.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := s.sessionID(w, r)

	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		logger.DebugContext(ctx, "ignoring malformed chat body", "error", err)
		req = chatRequest{}
	}

	turn, err := s.assistant.Respond(ctx, id, req.Message)
	if err != nil {
		if errors.Is(err, dialog.ErrGeneration) {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Reply: turn.Reply})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Reply: turn.Reply})
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{Reply: turn.Reply})
}

// handleText runs one turn and returns the reply as text and base64 MP3.
// Speech failures still return the text.
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "voice turn")
	defer span.End()
	id := s.sessionID(w, r)

	var req textRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	turn, err := s.assistant.Respond(ctx, id, req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status := http.StatusInternalServerError
		if errors.Is(err, dialog.ErrGeneration) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorResponse{Error: err.Error(), Reply: turn.Reply})
		return
	}

	speech, err := s.assistant.Synthesize(ctx, turn.Reply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "speech synthesis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Text: turn.Reply})
		return
	}

	audio := speech.Bytes()
	span.SetAttributes(attribute.Int("response.audio_bytes", len(audio)))
	writeJSON(w, http.StatusOK, textResponse{
		Text:  turn.Reply,
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
}
