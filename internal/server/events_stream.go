package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/auth"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/events"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/respond"
	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/utils"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

const (
	streamBuffer      = 100
	heartbeatInterval = 30 * time.Second
	wsWriteTimeout    = 5 * time.Second
)

// streamMessage is the JSON frame sent to stream clients
type streamMessage struct {
	Type      string           `json:"type"`
	Module    string           `json:"module,omitempty"`
	Timestamp string           `json:"timestamp"`
	Data      events.EventData `json:"data,omitempty"`
}

// EventsStreamHandler pushes bus events to connected clients over SSE or
// websocket. A client only sees its own events and system-wide ones.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// subscribe registers a filtered, non-blocking forwarder and returns the
// channel it feeds plus a function releasing the subscriptions.
func (h *EventsStreamHandler) subscribe(userID string, types []events.EventType) (<-chan *events.Event, func()) {
	ch := make(chan *events.Event, streamBuffer)

	handler := func(event *events.Event) {
		if event.UserID != "" && event.UserID != userID {
			return
		}
		select {
		case ch <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Str("user_id", userID).
				Msg("Event channel full, dropping event")
		}
	}

	ids := make([]events.SubscriptionID, 0, len(types))
	for _, t := range types {
		ids = append(ids, h.eventBus.Subscribe(t, handler))
	}

	return ch, func() {
		for _, id := range ids {
			h.eventBus.Unsubscribe(id)
		}
	}
}

// parseTypes reads ?types=a,b; empty selects every type
func parseTypes(r *http.Request) []events.EventType {
	raw := utils.ParseCSV(r.URL.Query().Get("types"))
	if len(raw) == 0 {
		return events.AllEventTypes
	}
	types := make([]events.EventType, 0, len(raw))
	for _, t := range raw {
		types = append(types, events.EventType(t))
	}
	return types
}

func newMessage(event *events.Event) streamMessage {
	return streamMessage{
		Type:      string(event.Type),
		Module:    event.Module,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Data:      event.Data,
	}
}

func controlMessage(kind string) streamMessage {
	return streamMessage{Type: kind, Timestamp: time.Now().Format(time.RFC3339)}
}

// ServeSSE handles GET /api/events/stream
func (h *EventsStreamHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.Fail(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventChan, unsubscribe := h.subscribe(userID, parseTypes(r))
	defer unsubscribe()

	h.log.Info().Str("user_id", userID).Msg("Client connected to event stream")

	send := func(msg streamMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to marshal event")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send(controlMessage("connected"))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Str("user_id", userID).Msg("Client disconnected from event stream")
			return
		case event := <-eventChan:
			send(newMessage(event))
		case <-heartbeat.C:
			send(controlMessage("heartbeat"))
		}
	}
}

// ServeWebSocket handles GET /api/events/ws. The socket is push-only;
// anything the client sends is discarded.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUser(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced by the router
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	eventChan, unsubscribe := h.subscribe(userID, parseTypes(r))
	defer unsubscribe()

	// CloseRead handles control frames and cancels ctx when the peer goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Str("user_id", userID).Msg("Client connected to event socket")

	if err := h.write(ctx, conn, controlMessage("connected")); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		var msg streamMessage
		select {
		case <-ctx.Done():
			h.log.Info().Str("user_id", userID).Msg("Client disconnected from event socket")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-eventChan:
			msg = newMessage(event)
		case <-heartbeat.C:
			msg = controlMessage("heartbeat")
		}

		if err := h.write(ctx, conn, msg); err != nil {
			h.log.Debug().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

func (h *EventsStreamHandler) write(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
