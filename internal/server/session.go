package server

import (
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const sessionCookie = "cookbook_session"

// sessionID returns the caller's session ID, issuing a new one in a cookie
// when the request carries none or an invalid one.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	span := trace.SpanFromContext(r.Context())

	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			span.SetAttributes(attribute.String("cookbook.session", id.String()))
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	span.SetAttributes(
		attribute.String("cookbook.session", id),
		attribute.Bool("cookbook.session.new", true),
	)
	return id
}
