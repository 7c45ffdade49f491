package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/haxorport/tunnel-bridge/internal/domain/model"
	"github.com/haxorport/tunnel-bridge/internal/domain/port"
)

// Server exposes a native channel to remote bridges over WebSocket
type Server struct {
	channel  port.Channel
	logger   port.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a Server that forwards exec frames to channel
func NewServer(channel port.Channel, logger port.Logger) *Server {
	return &Server{
		channel: channel,
		logger:  logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// serverConn serializes writes on one connection
type serverConn struct {
	conn   *websocket.Conn
	mutex  sync.Mutex
	closed bool
}

func (sc *serverConn) send(frameType model.FrameType, payload interface{}) error {
	frame, err := model.NewFrame(frameType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if sc.closed {
		return websocket.ErrCloseSent
	}
	sc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return sc.conn.WriteMessage(websocket.TextMessage, data)
}

func (sc *serverConn) close() {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.closed = true
	sc.conn.Close()
}

// ServeHTTP upgrades the request and serves frames until the peer leaves
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection: %v", err)
		return
	}

	sc := &serverConn{conn: conn}
	defer sc.close()

	s.logger.Info("Bridge connected from %s", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info("Bridge %s disconnected", r.RemoteAddr)
			return
		}

		var frame model.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Error("Failed to parse frame: %v", err)
			continue
		}

		switch frame.Type {
		case model.FrameTypePing:
			if err := sc.send(model.FrameTypePong, nil); err != nil {
				s.logger.Warn("Failed to send pong: %v", err)
			}
		case model.FrameTypeExec:
			s.handleExec(sc, &frame)
		default:
			s.logger.Error("No handler for frame type: %s", frame.Type)
		}
	}
}

func (s *Server) handleExec(sc *serverConn, frame *model.Frame) {
	var exec model.ExecPayload
	if err := frame.ParsePayload(&exec); err != nil {
		s.logger.Error("Failed to parse exec payload: %v", err)
		return
	}

	cmd := model.NewCommand(exec.Action, exec.Args...)
	keep := cmd.Kind() == model.KindSubscription

	reply := func(frameType model.FrameType) port.Callback {
		return func(value interface{}) {
			result := model.ResultPayload{CallbackID: exec.CallbackID, Keep: keep}
			if value != nil {
				raw, err := json.Marshal(value)
				if err != nil {
					s.logger.Error("Failed to encode %s result: %v", exec.Action, err)
					return
				}
				result.Value = raw
			}
			if err := sc.send(frameType, result); err != nil {
				s.logger.Warn("Failed to deliver %s result: %v", exec.Action, err)
			}
		}
	}

	s.logger.Debug("Executing %s on %s", exec.Action, exec.Service)
	s.channel.Exec(exec.Service, cmd, reply(model.FrameTypeSuccess), reply(model.FrameTypeError))
}
