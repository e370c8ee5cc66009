package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"vrptw/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 20 * time.Second
	wsWriteWait  = 5 * time.Second
)

// RunWSHandler streams the run's events as JSON messages over a websocket,
// one SSEEvent per message, and closes normally after the terminal event.
func (s *Server) RunWSHandler(w http.ResponseWriter, r *http.Request, run model.Run) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ch := s.Broker.Subscribe(run.ID)
	defer s.Broker.Unsubscribe(run.ID, ch)

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	closeNormal := func() {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"), time.Now().Add(wsWriteWait))
	}

	if cur, err := s.Store.GetRun(r.Context(), run.ID); err == nil && cur.Done() {
		if write(terminalEvent(cur)) == nil {
			closeNormal()
		}
		return
	}

	// Read loop: only control frames are expected; it ends when the client leaves.
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(wsPongWait)); return nil })
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := write(evt); err != nil {
				return
			}
			if evt.Terminal() {
				closeNormal()
				return
			}
		case <-ticker.C:
			if cur, err := s.Store.GetRun(r.Context(), run.ID); err == nil && cur.Done() {
				if write(terminalEvent(cur)) == nil {
					closeNormal()
				}
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
