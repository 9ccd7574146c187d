package net

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"harvest-and-haul/server/internal/telemetry"
	"harvest-and-haul/server/logging"
)

const (
	feedWriteTimeout = 5 * time.Second
	feedSendBuffer   = 64
)

// Feed is a logging sink that fans events out to websocket subscribers. A
// subscriber that cannot keep up is dropped rather than allowed to stall the
// sink worker.
type Feed struct {
	logger   telemetry.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[*feedSubscriber]struct{}
}

type feedSubscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func NewFeed(logger telemetry.Logger) *Feed {
	return &Feed{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*nethttp.Request) bool { return true },
		},
		subs: make(map[*feedSubscriber]struct{}),
	}
}

// Write implements logging.Sink.
func (f *Feed) Write(event logging.Event) error {
	f.mu.Lock()
	if len(f.subs) == 0 {
		f.mu.Unlock()
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		f.mu.Unlock()
		return err
	}
	var stalled []*feedSubscriber
	for sub := range f.subs {
		select {
		case sub.send <- data:
		default:
			stalled = append(stalled, sub)
		}
	}
	for _, sub := range stalled {
		delete(f.subs, sub)
	}
	f.mu.Unlock()
	for _, sub := range stalled {
		sub.close()
	}
	return nil
}

// Close implements logging.Sink.
func (f *Feed) Close(context.Context) error {
	f.mu.Lock()
	subs := make([]*feedSubscriber, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
		delete(f.subs, sub)
	}
	f.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
	return nil
}

// SubscriberCount reports live websocket subscribers.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// ServeWS upgrades the request and streams events until the client hangs up.
func (f *Feed) ServeWS(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if f.logger != nil {
			f.logger.Printf("feed upgrade failed: %v", err)
		}
		return
	}
	sub := &feedSubscriber{
		conn: conn,
		send: make(chan []byte, feedSendBuffer),
	}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	go sub.writeLoop()

	// Drain the read side so control frames are processed; the feed is
	// one-directional.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
	sub.close()
}

func (s *feedSubscriber) writeLoop() {
	for data := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	s.conn.Close()
}

func (s *feedSubscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}
