package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/motionlab/capserver/internal/authz"
	"github.com/motionlab/capserver/internal/config"
	"github.com/motionlab/capserver/internal/logger"
	"github.com/motionlab/capserver/internal/middleware"
	"github.com/motionlab/capserver/internal/service"
	ws "github.com/motionlab/capserver/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live session status changes to capture clients.
type WSHandler struct {
	rdb            *redis.Client
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:            rdb,
		sessionService: sessionService,
		log:            logger.Component(log, "ws_handler"),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStatusStream godoc
// WS /ws/v1/sessions/:id/stream
// Upgrades to WebSocket and forwards the session's status events until the
// client disconnects. Gated like a read of the session.
func (h *WSHandler) SessionStatusStream(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	sess, err := h.sessionService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		}
		return
	}

	snap := sess.Snapshot()
	decision, err := authz.Authorize(middleware.GetPrincipal(c), authz.ResourceSession, authz.ActionRetrieve, &snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	if decision != authz.Allow {
		status := http.StatusNotFound
		if decision == authz.Forbidden {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": "unavailable"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	streamLog := h.log.With().Str("session_id", id.String()).Logger()
	streamLog.Info().Msg("Status stream opened")

	sub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.SessionStatusChannel(id.String()))
	defer sub.Close()

	h.serve(conn, streamLog, id.String(), sess.Status, sub.Channel())
}

// serve owns the connection. Every write happens on this goroutine: the
// reader only drains client messages and surfaces ping requests, because the
// connection tolerates a single concurrent writer.
func (h *WSHandler) serve(conn *websocket.Conn, streamLog zerolog.Logger, sessionID, initialStatus string, events <-chan *redis.Message) {
	done := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				return
			}
			if msg.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	// Send the current status up front so late subscribers start in sync.
	_ = ws.WriteTyped(conn, ws.StatusResponse{
		Event:     ws.EventStatus,
		SessionID: sessionID,
		Status:    initialStatus,
	})

	for {
		select {
		case <-done:
			streamLog.Debug().Msg("Status stream closed by client")
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case msg, open := <-events:
			if !open {
				streamLog.Debug().Msg("Status channel closed")
				return
			}

			var event service.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				streamLog.Error().Err(err).Msg("Malformed status event")
				continue
			}

			if err := ws.WriteTyped(conn, ws.StatusResponse{
				Event:     ws.EventStatus,
				SessionID: event.SessionID,
				Status:    event.Status,
				TrialID:   event.TrialID,
				At:        event.At,
			}); err != nil {
				streamLog.Debug().Msg("Status stream write failed")
				return
			}
		}
	}
}
