package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

const maxQueuedFrames = 16

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowedOrigin(origin)
		},
	}
}

// trackSocket registers cancel so Shutdown can abort the connection's
// exchanges. It reports false once the server is shutting down.
func (s *Server) trackSocket(ws *websocket.Conn, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sockets[ws] = cancel
	return true
}

func (s *Server) untrackSocket(ws *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, ws)
}

// cancelSockets aborts every WebSocket exchange and refuses new connections.
func (s *Server) cancelSockets() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for _, cancel := range s.sockets {
		cancel()
	}
}

// handleChatWebSocket runs one independent exchange per text frame.
// Each reply frame has the same shape as the POST /api/chat body.
// Exchanges are cancelled when the client goes away or the server shuts down.
func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	// The request context of a hijacked connection is never cancelled.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	if !s.trackSocket(ws, cancel) {
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		return
	}
	defer s.untrackSocket(ws)

	frames := make(chan []byte, maxQueuedFrames)
	var wg sync.WaitGroup
	wg.Add(1)

	// Writer goroutine: runs exchanges in order and sends replies.
	go func() {
		defer wg.Done()
		defer ws.Close()

		for {
			select {
			case <-ctx.Done():
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			case data, ok := <-frames:
				if !ok {
					return
				}
				var req chatRequest
				reply := chatReply{Message: msgInvalidJSON}
				if err := json.Unmarshal(data, &req); err == nil {
					_, reply = s.exchange(ctx, req.Message)
				}
				if err := ws.WriteJSON(reply); err != nil {
					s.logger.Error("WebSocket write error", "request_id", RequestID(ctx), "error", err)
					return
				}
			}
		}
	}()

	// Reader loop: a read error means the client is gone.
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("WebSocket read ended", "request_id", RequestID(ctx), "error", err)
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		select {
		case frames <- data:
			continue
		case <-ctx.Done():
		}
		break
	}

	cancel()
	close(frames)
	wg.Wait()
}
