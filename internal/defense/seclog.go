package defense

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Event is a single security-relevant occurrence: an auth outcome, a lockout
// transition, or a suspicious payload observed by the request pipeline.
type Event struct {
	Type      string
	AccountID string
	Email     string
	IP        string
	Path      string
	UserAgent string
	Pattern   string
	Detail    string
	Time      time.Time
}

// Sink receives security events. Emit must never block the request path.
type Sink interface {
	Emit(event Event)
}

// NoopSink discards every event. Used in tests and as a safe default.
type NoopSink struct{}

func (NoopSink) Emit(Event) {}

// EventSink buffers events on a channel and drains them to a structured
// logger from a background goroutine. When the buffer is full events are
// dropped rather than stalling request handling.
type EventSink struct {
	events chan Event
	log    *zap.Logger
	done   chan struct{}
}

func NewEventSink(log *zap.Logger, buffer int) *EventSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &EventSink{
		events: make(chan Event, buffer),
		log:    log,
		done:   make(chan struct{}),
	}
}

// Start launches the drain goroutine. Call Stop to flush and terminate.
func (s *EventSink) Start() {
	go func() {
		defer close(s.done)
		for event := range s.events {
			s.write(event)
		}
	}()
}

// Stop closes the sink and waits for buffered events to be written.
func (s *EventSink) Stop() {
	close(s.events)
	<-s.done
}

func (s *EventSink) Emit(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	select {
	case s.events <- event:
	default:
	}
}

func (s *EventSink) write(event Event) {
	fields := []zap.Field{
		zap.String("event", event.Type),
		zap.Time("at", event.Time),
	}
	if event.AccountID != "" {
		fields = append(fields, zap.String("account_id", event.AccountID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.Path != "" {
		fields = append(fields, zap.String("path", event.Path))
	}
	if event.UserAgent != "" {
		fields = append(fields, zap.String("user_agent", event.UserAgent))
	}
	if event.Pattern != "" {
		fields = append(fields, zap.String("pattern", event.Pattern))
	}
	if event.Detail != "" {
		fields = append(fields, zap.String("detail", event.Detail))
	}
	s.log.Info("security_event", fields...)
}

// suspiciousPatterns are matched case-insensitively against raw request
// content. A hit is logged for audit; sanitization happens elsewhere and the
// request proceeds either way.
var suspiciousPatterns = []string{
	"<script",
	"javascript:",
	"onerror=",
	"../",
	`..\`,
	"union select",
	"$where",
	"$ne",
}

// SuspiciousInput returns middleware that scans request body and query for
// known attack signatures and emits a security event on the first match.
func SuspiciousInput(sink Sink) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content := strings.ToLower(string(c.Body()) + string(c.Request().URI().QueryString()))

		for _, pattern := range suspiciousPatterns {
			if strings.Contains(content, pattern) {
				sink.Emit(Event{
					Type:      "suspicious_input",
					IP:        c.IP(),
					Path:      c.Path(),
					UserAgent: string(c.Request().Header.UserAgent()),
					Pattern:   pattern,
				})
				break
			}
		}

		return c.Next()
	}
}
