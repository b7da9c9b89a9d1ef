package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"routedesk-service/internal/domain/auth"
	"routedesk-service/internal/domain/route"
	wstypes "routedesk-service/internal/domain/websocket"
	"routedesk-service/internal/pkg/clock"
	ws "routedesk-service/internal/websocket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubBoards struct {
	actor auth.Actor
	agent int64
	day   time.Time
}

func (s *stubBoards) DeliveryBoard(_ context.Context, actor auth.Actor, agentID int64, day time.Time) (*route.DeliveryBoard, error) {
	s.actor, s.agent, s.day = actor, agentID, day
	return &route.DeliveryBoard{AgentID: agentID, Day: day.Format("2006-01-02")}, nil
}

func connect(t *testing.T, hub *ws.Hub, a ws.ClientAuth) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := ws.NewClient(hub, conn, &a)
		hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	assert.Equal(t, wstypes.EventTypeConnected, next(t, conn).Type)
	return conn
}

func next(t *testing.T, conn *websocket.Conn) *wstypes.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wstypes.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func TestBoardSummary(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	// 22:30 local on the 30th is already the 31st in UTC.
	now := time.Date(2026, 3, 30, 22, 30, 0, 0, loc)

	boards := &stubBoards{}
	hub := ws.NewHub(nil, zap.NewNop())
	hub.RegisterHandler(NewBoardHandler(boards, clock.Fixed(now), zap.NewNop()))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	conn := connect(t, hub, ws.ClientAuth{UserID: 7, Username: "dave", SessionID: "s1", Roles: []string{auth.RoleDeliveryAgent}})

	t.Run("today by default", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(wstypes.NewMessage(wstypes.EventTypeBoardSummary, nil)))
		msg := next(t, conn)
		require.Equal(t, wstypes.EventTypeBoardSummary, msg.Type)

		var board route.DeliveryBoard
		require.NoError(t, ws.DecodeData(msg.Data, &board))
		assert.Equal(t, "2026-03-30", board.Day)
		assert.Equal(t, int64(7), boards.agent)
		assert.Equal(t, auth.Actor{UserID: 7, Username: "dave"}, boards.actor)
	})

	t.Run("explicit day", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(wstypes.NewMessage(wstypes.EventTypeBoardSummary,
			wstypes.BoardSummaryRequest{Day: "2026-03-28"})))
		msg := next(t, conn)
		require.Equal(t, wstypes.EventTypeBoardSummary, msg.Type)
		assert.Equal(t, time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC), boards.day)
	})

	t.Run("malformed day", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(wstypes.NewMessage(wstypes.EventTypeBoardSummary,
			wstypes.BoardSummaryRequest{Day: "28/03"})))
		msg := next(t, conn)
		require.Equal(t, wstypes.EventTypeError, msg.Type)

		var data wstypes.ErrorData
		require.NoError(t, ws.DecodeData(msg.Data, &data))
		assert.Equal(t, "handler_error", data.Code)
	})
}
