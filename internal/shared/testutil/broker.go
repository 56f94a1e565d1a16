package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// BrokerMessage is a SEND frame received by the fake broker.
type BrokerMessage struct {
	Destination string
	Body        []byte
}

// Broker is a minimal STOMP 1.2 broker over WebSocket, enough to exercise
// connect, subscribe, unsubscribe, send and message delivery.
type Broker struct {
	Server *httptest.Server

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*brokerSession]struct{}
	sent     []BrokerMessage
	connects int
	refuse   bool
}

type brokerSession struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]string // subscription id -> destination
}

func NewBroker(t testingT) *Broker {
	b := &Broker{sessions: make(map[*brokerSession]struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/websocket", b.serveWS)
	b.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		b.DropAll()
		b.Server.Close()
	})
	return b
}

// URL is the ws:// endpoint of the broker.
func (b *Broker) URL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + "/ws/websocket"
}

// Refuse makes new WebSocket handshakes fail while set.
func (b *Broker) Refuse(v bool) {
	b.mu.Lock()
	b.refuse = v
	b.mu.Unlock()
}

// Connects counts completed STOMP handshakes.
func (b *Broker) Connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects
}

func (b *Broker) Sent() []BrokerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BrokerMessage(nil), b.sent...)
}

// Subscribers counts live subscriptions to destination across sessions.
func (b *Broker) Subscribers(destination string) int {
	n := 0
	for _, s := range b.snapshot() {
		s.mu.Lock()
		for _, d := range s.subs {
			if d == destination {
				n++
			}
		}
		s.mu.Unlock()
	}
	return n
}

// Publish delivers body as a MESSAGE frame to every subscriber of destination.
func (b *Broker) Publish(destination string, body []byte) {
	for _, s := range b.snapshot() {
		s.deliver(destination, body)
	}
}

// DropAll closes every connection without a DISCONNECT, as a broker crash would.
func (b *Broker) DropAll() {
	for _, s := range b.snapshot() {
		s.conn.Close()
	}
}

func (b *Broker) snapshot() []*brokerSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*brokerSession, 0, len(b.sessions))
	for s := range b.sessions {
		out = append(out, s)
	}
	return out
}

func (b *Broker) serveWS(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	refuse := b.refuse
	b.mu.Unlock()
	if refuse {
		http.Error(w, "broker unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s := &brokerSession{conn: conn, subs: make(map[string]string)}
	b.mu.Lock()
	b.sessions[s] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.sessions, s)
		b.mu.Unlock()
		conn.Close()
	}()

	for {
		_, r, err := conn.NextReader()
		if err != nil {
			return
		}
		f, err := frame.NewReader(r).Read()
		if err != nil {
			return
		}
		if f == nil {
			continue // heart-beat
		}

		switch f.Command {
		case frame.CONNECT, frame.STOMP:
			b.mu.Lock()
			b.connects++
			b.mu.Unlock()
			s.write(frame.New(frame.CONNECTED, "version", "1.2", "heart-beat", "0,0"))
		case frame.SUBSCRIBE:
			s.mu.Lock()
			s.subs[f.Header.Get("id")] = f.Header.Get("destination")
			s.mu.Unlock()
		case frame.UNSUBSCRIBE:
			s.mu.Lock()
			delete(s.subs, f.Header.Get("id"))
			s.mu.Unlock()
		case frame.SEND:
			dest := f.Header.Get("destination")
			b.mu.Lock()
			b.sent = append(b.sent, BrokerMessage{Destination: dest, Body: append([]byte(nil), f.Body...)})
			b.mu.Unlock()
			b.Publish(dest, f.Body)
		case frame.DISCONNECT:
			if receipt := f.Header.Get("receipt"); receipt != "" {
				s.write(frame.New(frame.RECEIPT, "receipt-id", receipt))
			}
			return
		}
	}
}

func (s *brokerSession) deliver(destination string, body []byte) {
	s.mu.Lock()
	var ids []string
	for id, d := range s.subs {
		if d == destination {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		f := frame.New(frame.MESSAGE,
			"destination", destination,
			"subscription", id,
			"message-id", uuid.NewString(),
			"content-type", "application/json",
			"content-length", strconv.Itoa(len(body)),
		)
		f.Body = body
		s.write(f)
	}
}

func (s *brokerSession) write(f *frame.Frame) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	w, err := s.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return
	}
	_ = frame.NewWriter(w).Write(f)
	_ = w.Close()
}
