// internal/websocket/handler/board.go
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/route"
	wstypes "routedesk-service/internal/domain/websocket"
	"routedesk-service/internal/pkg/clock"
	ws "routedesk-service/internal/websocket"

	"go.uber.org/zap"
)

// BoardReader is the part of the report service the board handler needs.
type BoardReader interface {
	DeliveryBoard(ctx context.Context, actor auth.Actor, agentID int64, day time.Time) (*route.DeliveryBoard, error)
}

// BoardHandler answers board:summary requests with the caller's own delivery board,
// so a driver's screen can refresh after a visit:assigned push.
type BoardHandler struct {
	boards BoardReader
	clock  clock.Clock
	logger *zap.Logger
}

func NewBoardHandler(boards BoardReader, clk clock.Clock, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{boards: boards, clock: clk, logger: logger}
}

func (h *BoardHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeBoardSummary}
}

func (h *BoardHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	if msg.Type != wstypes.EventTypeBoardSummary {
		return fmt.Errorf("%w: %s", ws.ErrUnsupportedEvent, msg.Type)
	}

	var req wstypes.BoardSummaryRequest
	if msg.Data != nil {
		if err := ws.DecodeData(msg.Data, &req); err != nil {
			return err
		}
	}

	day := clock.Day(h.clock.Now())
	if raw := strings.TrimSpace(req.Day); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("%w: day %q", ws.ErrInvalidPayload, raw)
		}
		day = parsed
	}

	actor := auth.Actor{
		UserID:   client.UserID(),
		Username: client.Username(),
		Elevated: client.HasRole(auth.RoleManager),
	}
	board, err := h.boards.DeliveryBoard(ctx, actor, client.UserID(), day)
	if err != nil {
		h.logger.Warn("board summary failed",
			zap.Int64("user_id", client.UserID()),
			zap.Error(err),
		)
		return errors.New("failed to load board")
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeBoardSummary, board))
	return nil
}
