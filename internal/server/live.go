package server

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// handleLive streams every driver update to a websocket client, starting
// with the current state.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server error")

	if s.metrics != nil {
		defer s.metrics.ClientConnected()()
	}

	updates, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the client goes away.
	ctx := conn.CloseRead(r.Context())

	if u := s.current(); u.HasReading || u.Err != nil {
		if err := s.writeMessage(ctx, conn, s.response(u)); err != nil {
			return
		}
	}

	ticker := time.NewTicker(s.pingTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		case u := <-updates:
			if err := s.writeMessage(ctx, conn, s.response(u)); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func (s *Server) writeMessage(ctx context.Context, conn *websocket.Conn, msg readingResponse) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
