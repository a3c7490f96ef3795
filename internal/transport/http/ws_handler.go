package http

import (
	"net/http"
	"time"

	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/logger"
	"quiz-progress-service/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// FeedHandler streams progress events to the authenticated user's sockets.
type FeedHandler struct {
	service  *app.ProgressService
	hub      *app.EventHub
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewFeedHandler(service *app.ProgressService, hub *app.EventHub, log *logger.Logger) *FeedHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &FeedHandler{
		service: service,
		hub:     hub,
		log:     log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pushes a summary followed by every
// progress event for the caller until the client goes away.
func (h *FeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, &domain.AuthError{Err: domain.ErrUnauthenticated})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe(id.UserID)
	defer cancel()
	metrics.FeedSubscribers.Inc()
	defer metrics.FeedSubscribers.Dec()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug("ws write error", "user_id", id.UserID, "error", err)
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "progress", Payload: event}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "failed to load progress"}}
	} else {
		send <- outboundMessage[any]{Type: "summary", Payload: summary}
	}

	// The feed is server to client only; reads detect the close and keep pongs flowing.
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
