package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/aseangps/agenthub/logging"
	"github.com/aseangps/agenthub/protocol"
)

// wsConn adapts a websocket connection to the hub's fan-out interface. Writes
// are serialized by the hub's per-session lock, so no extra mutex is needed.
type wsConn struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	wc := &wsConn{conn: conn, timeout: s.writeTimeout()}
	ctx := r.Context()
	log := logging.FromContext(ctx)

	// A connection serves exactly one session, fixed by the first valid
	// message. Later messages carrying a different session_id keep the
	// original binding.
	var sessionID string
	defer func() {
		if sessionID != "" {
			s.Hub.Disconnect(sessionID, wc)
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg protocol.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendDirect(ctx, wc, protocol.NewErrorEvent(sessionID, "malformed message: "+err.Error()))
			continue
		}
		if err := msg.Validate(); err != nil {
			// Invalid registrations get an error on the raw socket and no
			// session binding, so nothing is ever broadcast to them.
			s.sendDirect(ctx, wc, protocol.NewErrorEvent("", err.Error()))
			continue
		}

		if sessionID == "" {
			sessionID = msg.SessionID
			s.Hub.Connect(sessionID, wc)
			log.Info("session registered", "session_id", sessionID)
		}

		if msg.IsRegistration() {
			continue
		}

		// The run outlives the socket. Detaching cancellation keeps the
		// broadcast path alive for sibling connections after a disconnect.
		runCtx := context.WithoutCancel(r.Context())
		go func(prompt, token string) {
			if err := s.Adapter.Handle(runCtx, sessionID, prompt, token); err != nil {
				log.Warn("request rejected", "session_id", sessionID, "error", err)
			}
		}(msg.Prompt, msg.AccessToken)
	}
}

func (s *Server) sendDirect(ctx context.Context, wc *wsConn, ev protocol.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = wc.Send(ctx, payload)
}
