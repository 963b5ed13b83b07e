package gateway

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/kevinai/kevin/pkg/store"
	"github.com/kevinai/kevin/pkg/tooldispatch"
)

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan interface{}
}

type wsInbound struct {
	Type     string                 `json:"type"`
	Message  string                 `json:"message,omitempty"`
	ToolName string                 `json:"tool_name,omitempty"`
	Args     map[string]interface{} `json:"args,omitempty"`
}

// handleWebSocket runs the duplex channel for one session: chat and tool
// frames in, responses and notifications out.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID := ps.ByName("id")

	session, err := s.store.Get(sessionID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	clientID, _ := gonanoid.New()
	client := &wsClient{
		id:   clientID,
		conn: conn,
		send: make(chan interface{}, 16),
	}

	s.addClient(sessionID, client)
	s.logger.Debug().Str("session_id", sessionID).Str("client_id", clientID).Msg("WebSocket client connected")

	go s.writePump(client)
	s.readPump(r, session, client)

	// Deregister before closing the channel so NotifyUser can never hit
	// a closed send.
	s.removeClient(sessionID, client)
	close(client.send)
	_ = conn.Close()
	s.logger.Debug().Str("session_id", sessionID).Str("client_id", clientID).Msg("WebSocket client disconnected")
}

func (s *Server) readPump(r *http.Request, session *store.Session, client *wsClient) {
	for {
		var frame wsInbound
		if err := client.conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "chat":
			result, err := s.orchestrator.ProcessMessage(r.Context(), session.ID, frame.Message)
			if err != nil {
				client.send <- map[string]interface{}{"type": "error", "message": err.Error()}
				continue
			}
			client.send <- map[string]interface{}{"type": "response", "data": result}

		case "tool":
			data := s.executeToolWS(r, session, frame.ToolName, frame.Args)
			client.send <- map[string]interface{}{"type": "tool_result", "tool": frame.ToolName, "data": data}

		default:
			client.send <- map[string]interface{}{"type": "error", "message": "unknown frame type: " + frame.Type}
		}
	}
}

func (s *Server) executeToolWS(r *http.Request, session *store.Session, name string, args map[string]interface{}) interface{} {
	execCtx := tooldispatch.WithExecContext(r.Context(), tooldispatch.ExecContext{
		SessionID:    session.ID,
		WorkspaceDir: session.WorkspacePath,
		Timeout:      s.toolTimeout,
	})

	result := s.dispatcher.Invoke(execCtx, name, args)
	if result.Error != "" {
		return map[string]interface{}{"error": result.Error}
	}
	return result.Output
}

func (s *Server) writePump(client *wsClient) {
	for payload := range client.send {
		if err := client.conn.WriteJSON(payload); err != nil {
			return
		}
	}
}

func (s *Server) addClient(sessionID string, client *wsClient) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if s.clients[sessionID] == nil {
		s.clients[sessionID] = make(map[*wsClient]bool)
	}
	s.clients[sessionID][client] = true
}

func (s *Server) removeClient(sessionID string, client *wsClient) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	delete(s.clients[sessionID], client)
	if len(s.clients[sessionID]) == 0 {
		delete(s.clients, sessionID)
	}
}

// NotifyUser pushes a notification frame to every client watching a
// session. Wired as the message_user delivery path.
func (s *Server) NotifyUser(sessionID, message string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for client := range s.clients[sessionID] {
		select {
		case client.send <- map[string]interface{}{"type": "notification", "message": message}:
		default:
			// Slow consumer; drop rather than block the loop.
		}
	}
}
