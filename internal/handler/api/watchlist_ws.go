package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"TradeInfo/internal/domain/models"
	"TradeInfo/internal/usecase"
	xlogger "TradeInfo/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// SnapshotStream pushes the full document to websocket clients: once on
// connect and again after every committed change. Slow clients only ever see
// the latest snapshot.
type SnapshotStream struct {
	logger   *xlogger.Logger
	store    *usecase.WatchlistStore
	upgrader websocket.Upgrader
}

// NewSnapshotStream creates the /ws endpoint. An empty origins list accepts any origin.
func NewSnapshotStream(logger *xlogger.Logger, store *usecase.WatchlistStore, origins []string) *SnapshotStream {
	if logger == nil {
		logger = xlogger.Nop()
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o != "*" {
			allowed[o] = struct{}{}
		}
	}
	return &SnapshotStream{
		logger: logger,
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    1024,
			WriteBufferSize:   4096,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

func (s *SnapshotStream) Serve(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	// subscribers run under the store lock, so the hand-off must never block
	latest := make(chan models.Document, 1)
	push := func(d models.Document) {
		select {
		case latest <- d:
		default:
			select {
			case <-latest:
			default:
			}
			select {
			case latest <- d:
			default:
			}
		}
	}
	unsubscribe := s.store.Watch(push)

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, latest, done)

	unsubscribe()
	_ = conn.Close()
	return nil
}

func (s *SnapshotStream) writePump(conn *websocket.Conn, latest <-chan models.Document, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case doc := <-latest:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(doc); err != nil {
				s.logger.Debug("websocket write failed", xlogger.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; it exists to process control frames and notice disconnects.
func (s *SnapshotStream) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
