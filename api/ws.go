package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/state"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type snapshotSource interface {
	Snapshot() *state.Snapshot
	Subscribe() <-chan *state.Snapshot
	Unsubscribe(ch <-chan *state.Snapshot)
}

// snapshotStream pushes the current snapshot on connect and every newly
// published one afterwards.
type snapshotStream struct {
	src      snapshotSource
	log      logger.Logger
	upgrader websocket.Upgrader
}

func newSnapshotStream(src snapshotSource, log logger.Logger) *snapshotStream {
	return &snapshotStream{
		src: src,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (s *snapshotStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	updates := s.src.Subscribe()
	defer s.src.Unsubscribe(updates)

	// The read loop only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.send(conn, s.src.Snapshot()); err != nil {
		return
	}
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
				return
			}
			if err := s.send(conn, snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *snapshotStream) send(conn *websocket.Conn, snap *state.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snap); err != nil {
		s.log.Debugf("websocket write: %v", err)
		return err
	}
	return nil
}
