package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stablemint/stablemint/internal/engine"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamEvent is the wire form of an engine event.
type streamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// handleEventStream upgrades the connection and forwards committed engine
// events to the client until it disconnects.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events := s.engine.Events().Subscribe()
	defer s.engine.Events().Unsubscribe(events)
	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	// Drain reads so pong frames and the close handshake are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(streamEvent{Type: eventType(ev), Data: ev})
			if err != nil {
				s.logger.Error("Failed to encode event", zap.Error(err))
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func eventType(ev interface{}) string {
	switch ev.(type) {
	case engine.EventCollateralDeposited:
		return "collateral_deposited"
	case engine.EventCollateralRedeemed:
		return "collateral_redeemed"
	case engine.EventDebtMinted:
		return "debt_minted"
	case engine.EventDebtBurned:
		return "debt_burned"
	case engine.EventLiquidation:
		return "liquidation"
	default:
		return "unknown"
	}
}
