package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/model"
	"github.com/stemsi/cat-backend/internal/response"
	"github.com/stemsi/cat-backend/internal/service"
	ws "github.com/stemsi/cat-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
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

// WSHandler streams the session countdown and accepts answers over a socket.
type WSHandler struct {
	sessions SessionEngine
	log      zerolog.Logger
	upgrader websocket.Upgrader
	tick     time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions SessionEngine, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
		tick:     time.Second,
	}
}

// Countdown godoc
// WS /ws/v1/sessions/:id/countdown?token=
// Pushes the remaining time every second and an expired event at zero.
// Clients may send answer, submit and ping actions.
func (h *WSHandler) Countdown(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	remaining, status, err := h.sessions.Remaining(ctx, caller, sessionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if status != model.SessionStatusInProgress {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidState)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", caller.UserID.String()).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Countdown connected")

	stop := make(chan struct{})
	defer close(stop)
	requests := make(chan ws.Request)
	readErr := make(chan error, 1)
	go func() {
		for {
			req, err := ws.ReadRequest(conn)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case requests <- req:
			case <-stop:
				return
			}
		}
	}()

	if !h.sendRemaining(conn, wsLog, remaining, status) {
		return
	}

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()
	tickC := ticker.C

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return

		case req := <-requests:
			if done := h.handleRequest(ctx, conn, wsLog, caller, sessionID, req); done {
				return
			}

		case <-tickC:
			remaining, status, err := h.sessions.Remaining(ctx, caller, sessionID)
			if err != nil {
				h.writeError(conn, wsLog, err)
				return
			}
			if !h.sendRemaining(conn, wsLog, remaining, status) {
				// Clock is done; keep serving actions so the client can submit.
				ticker.Stop()
				tickC = nil
			}
		}
	}
}

// sendRemaining writes a tick, or the expired event once no time is left.
// It reports whether the clock is still running.
func (h *WSHandler) sendRemaining(conn *websocket.Conn, log zerolog.Logger, remaining int, status model.SessionStatus) bool {
	if status != model.SessionStatusInProgress || remaining <= 0 {
		if err := ws.WriteTyped(conn, ws.ExpiredResponse{Event: ws.EventExpired, Status: status}); err != nil {
			log.Debug().Err(err).Msg("Write expired failed")
		}
		return false
	}
	if err := ws.WriteTyped(conn, ws.TickResponse{Event: ws.EventTick, RemainingTime: remaining}); err != nil {
		log.Debug().Err(err).Msg("Write tick failed")
	}
	return true
}

// handleRequest runs one client action. It reports whether the connection
// should close.
func (h *WSHandler) handleRequest(ctx context.Context, conn *websocket.Conn, log zerolog.Logger, caller service.Caller, sessionID uuid.UUID, req ws.Request) bool {
	switch req.Action {
	case ws.ActionPing:
		_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

	case ws.ActionAnswer:
		err := h.sessions.SubmitAnswer(ctx, caller, sessionID, model.SubmitAnswerRequest{
			QuestionID:       req.QuestionID,
			SelectedAnswerID: req.SelectedAnswerID,
		})
		if err != nil {
			h.writeError(conn, log, err)
			return false
		}
		_ = ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: req.QuestionID})

	case ws.ActionSubmit:
		finalized, err := h.sessions.Finalize(ctx, caller, sessionID)
		if err != nil {
			h.writeError(conn, log, err)
			return false
		}
		log.Info().
			Str("status", string(finalized.Session.Status)).
			Float64("score", finalized.Result.Score).
			Msg("Session submitted over websocket")
		_ = ws.WriteTyped(conn, ws.GradedResponse{
			Event:  ws.EventGraded,
			Status: finalized.Session.Status,
			Result: finalized.Result,
		})
		return true

	case "":
		_ = ws.WriteError(conn, string(response.ErrValidation), "malformed message")

	default:
		log.Warn().Str("action", string(req.Action)).Msg("Unknown action")
		_ = ws.WriteError(conn, string(response.ErrValidation), "unknown action: "+string(req.Action))
	}
	return false
}

func (h *WSHandler) writeError(conn *websocket.Conn, log zerolog.Logger, err error) {
	status, code := errorStatus(err)
	msg := response.GetMessage(code)

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Error()
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Countdown action failed")
	}
	_ = ws.WriteError(conn, string(code), msg)
}
