package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thiagokokada/gitdesk/internal/session"
)

// Message types sent by the server.
const (
	TypeSnapshot = "snapshot"
	TypeNotice   = "notice"
	TypeError    = "error"
)

// Message types accepted from clients.
const (
	TypeCommitSelect    = "commit.select"
	TypeFileSelect      = "file.select"
	TypeSelectionClear  = "selection.clear"
	TypeContentChange   = "content.change"
	TypeContentFlush    = "content.flush"
	TypeMutationOpen    = "mutation.open"
	TypeMutationToggle  = "mutation.toggle"
	TypeMutationTargets = "mutation.targets"
	TypeMutationMessage = "mutation.message"
	TypeMutationSubmit  = "mutation.submit"
	TypeMutationCancel  = "mutation.cancel"
	TypeTreeLoad        = "tree.load"
	TypeTreeOpen        = "tree.open"
	TypeStepBack        = "step.back"
	TypeRefresh         = "refresh"
	TypeSessionReset    = "session.reset"
)

const writeTimeout = 10 * time.Second

// Message is the envelope for both directions. ID is echoed back on errors
// so clients can match them to their request.
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outgoing struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Request string `json:"request,omitempty"`
	Message string `json:"message"`
}

type requestPayload struct {
	Hash    string               `json:"hash"`
	Path    string               `json:"path"`
	Paths   []string             `json:"paths"`
	Content string               `json:"content"`
	Kind    session.MutationKind `json:"kind"`
	Message string               `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade", slog.Any("error", err))
		return
	}
	sub, err := s.ctrl.Subscribe()
	if err != nil {
		_ = conn.Close()
		return
	}
	clientID := uuid.NewString()
	slog.Debug("websocket client connected", slog.String("client", clientID))

	replies := make(chan outgoing, 16)
	done := make(chan struct{})
	go s.writeLoop(conn, sub, replies, done)

	defer func() {
		close(done)
		sub.Close()
		_ = conn.Close()
		slog.Debug("websocket client disconnected", slog.String("client", clientID))
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reply(replies, done, outgoing{Type: TypeError, Payload: errorPayload{Message: "malformed message: " + err.Error()}})
			continue
		}
		if err := s.dispatch(msg); err != nil {
			s.reply(replies, done, outgoing{
				Type:    TypeError,
				ID:      msg.ID,
				Payload: errorPayload{Request: msg.Type, Message: err.Error()},
			})
		}
	}
}

func (s *Server) reply(replies chan<- outgoing, done <-chan struct{}, msg outgoing) {
	select {
	case replies <- msg:
	case <-done:
	}
}

// writeLoop is the only writer of conn.
func (s *Server) writeLoop(conn *websocket.Conn, sub *session.Subscription, replies <-chan outgoing, done <-chan struct{}) {
	write := func(msg outgoing) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			slog.Debug("websocket write", slog.Any("error", err))
			_ = conn.Close()
			return false
		}
		return true
	}
	for {
		select {
		case <-done:
			return
		case msg := <-replies:
			if !write(msg) {
				return
			}
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.Close()
				return
			}
			var msg outgoing
			switch {
			case ev.Snapshot != nil:
				msg = outgoing{Type: TypeSnapshot, Payload: ev.Snapshot}
			case ev.Notice != nil:
				msg = outgoing{Type: TypeNotice, Payload: ev.Notice}
			default:
				continue
			}
			if !write(msg) {
				return
			}
		}
	}
}

func (s *Server) dispatch(msg Message) error {
	var p requestPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("malformed payload: %w", err)
		}
	}
	c := s.ctrl
	switch msg.Type {
	case TypeCommitSelect:
		return c.SelectCommitHash(p.Hash)
	case TypeFileSelect:
		return c.SelectFile(p.Path)
	case TypeSelectionClear:
		return c.ClearSelection()
	case TypeContentChange:
		return c.ContentChanged(p.Path, p.Content)
	case TypeContentFlush:
		return c.Flush(p.Path)
	case TypeMutationOpen:
		return c.OpenMutation(p.Kind)
	case TypeMutationToggle:
		return c.ToggleTarget(p.Kind, p.Path)
	case TypeMutationTargets:
		return c.SetTargets(p.Kind, p.Paths)
	case TypeMutationMessage:
		return c.SetMessage(p.Kind, p.Message)
	case TypeMutationSubmit:
		return c.SubmitMutation(p.Kind)
	case TypeMutationCancel:
		return c.CancelMutation(p.Kind)
	case TypeTreeLoad:
		return c.LoadTree()
	case TypeTreeOpen:
		return c.OpenFile(p.Path)
	case TypeStepBack:
		return c.Back()
	case TypeRefresh:
		return c.Refresh()
	case TypeSessionReset:
		if s.reset != nil {
			return s.reset()
		}
		return c.Reset()
	case "":
		return errors.New("missing message type")
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}
