package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer   = 32
	readDeadline = 60 * time.Second
)

// Subscriber is one live alert-feed websocket.
type Subscriber struct {
	id           string
	stationID    string
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *zap.Logger
	onClose      func(id string)
}

func newSubscriber(id, stationID string, conn *websocket.Conn, writeTimeout, pingInterval time.Duration, logger *zap.Logger, onClose func(string)) *Subscriber {
	return &Subscriber{
		id:           id,
		stationID:    stationID,
		ws:           conn,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		logger:       logger,
		onClose:      onClose,
	}
}

// Wants reports whether the subscriber filters on stationID, or takes everything.
func (s *Subscriber) Wants(stationID string) bool {
	return s.stationID == "" || stationID == "" || s.stationID == stationID
}

// Start runs the pumps until the peer goes away.
func (s *Subscriber) Start() {
	go s.writePump()
	s.readPump()
}

// readPump only services control frames; clients never send data.
func (s *Subscriber) readPump() {
	defer s.Close()
	s.ws.SetReadLimit(512)
	_ = s.ws.SetReadDeadline(time.Now().Add(readDeadline))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		if _, _, err := s.ws.ReadMessage(); err != nil {
			s.logger.Debug("alert subscriber read closed", zap.String("subscriber", s.id), zap.Error(err))
			return
		}
	}
}

func (s *Subscriber) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			_ = s.write(websocket.CloseMessage, []byte{})
			return
		case msg := <-s.send:
			if err := s.write(websocket.TextMessage, msg); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Send enqueues msg. Slow subscribers drop messages instead of blocking the broadcaster.
func (s *Subscriber) Send(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		s.logger.Warn("dropping alert, subscriber buffer full", zap.String("subscriber", s.id))
		return false
	}
}

// Close is idempotent.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.ws.Close()
		if s.onClose != nil {
			s.onClose(s.id)
		}
	})
}

func (s *Subscriber) write(messageType int, data []byte) error {
	_ = s.ws.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.ws.WriteMessage(messageType, data)
}
