// Package audit records security-relevant actions (registrations, moderation
// decisions, bulk imports) as structured zerolog events.
package audit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	Actor        string            `json:"actor"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	Status       string            `json:"status"` // "success" or "failure"
	Details      map[string]string `json:"details,omitempty"`
}

type Logger struct {
	output zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{output: logger.With().Str("component", "audit").Logger()}
}

// Nop returns a logger that discards every entry.
func Nop() *Logger {
	return &Logger{output: zerolog.Nop()}
}

func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.output.Info().Interface("audit", entry).Msg(entry.Action)
}

func (l *Logger) LogSuccess(action, actor, resourceType, resourceID string, details map[string]string) {
	l.Log(Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       "success",
		Details:      details,
	})
}

func (l *Logger) LogFailure(action, actor string, details map[string]string) {
	l.Log(Entry{
		Action:  action,
		Actor:   actor,
		Status:  "failure",
		Details: details,
	})
}

// LogFromRequest logs an action attributed to actor, adding the client IP.
func (l *Logger) LogFromRequest(r *http.Request, action, actor, resourceType, resourceID, status string, details map[string]string) {
	l.Log(Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ClientIP(r),
		Status:       status,
		Details:      details,
	})
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote
// host, in that order.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
