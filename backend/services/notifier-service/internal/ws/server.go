package ws

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP connections to the alert feed.
type Server struct {
	hub          *Hub
	logger       *zap.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
	upgrader     websocket.Upgrader
	seq          atomic.Uint64
}

// NewServer builds ws server.
// An empty allowedOrigins list accepts any Origin header.
func NewServer(hub *Hub, pingInterval, writeTimeout time.Duration, allowedOrigins []string, logger *zap.Logger) *Server {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		hub:          hub,
		logger:       logger,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// HandleWS is HTTP handler for /ws/alerts. An optional station_id query parameter
// narrows the feed to one station.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	stationID := r.URL.Query().Get("station_id")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := "sub-" + strconv.FormatUint(s.seq.Add(1), 10)
	sub := newSubscriber(id, stationID, conn, s.writeTimeout, s.pingInterval, s.logger, s.hub.Remove)
	s.hub.Add(sub)

	go sub.Start()
	s.logger.Info("alert subscriber connected", zap.String("subscriber", id), zap.String("station_id", stationID))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[strings.TrimRight(strings.ToLower(origin), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(strings.ToLower(origin), "/")]
		return ok
	}
}
