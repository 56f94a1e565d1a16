package stomp

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/shoozy-shop/storefront/internal/domain/notification"
	"github.com/shoozy-shop/storefront/internal/shared/goroutine"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

// Conn is one STOMP session. Frames are written under writeMu; incoming
// MESSAGE frames are dispatched on the reader goroutine.
type Conn struct {
	ws     *websocket.Conn
	logger logger.Interface

	writeMu sync.Mutex

	mu      sync.Mutex
	subs    map[string]*subscription
	closing bool
	closed  bool
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	conn        *Conn
	id          string
	destination string
	handler     func(notification.Message)
	once        sync.Once
}

var _ notification.Conn = (*Conn)(nil)

func newConn(ws *websocket.Conn, log logger.Interface) *Conn {
	return &Conn{
		ws:     ws,
		logger: log,
		subs:   make(map[string]*subscription),
		done:   make(chan struct{}),
	}
}

func (c *Conn) Subscribe(destination string, handler func(notification.Message)) (notification.Subscription, error) {
	sub := &subscription{
		conn:        c,
		id:          uuid.NewString(),
		destination: destination,
		handler:     handler,
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.subs[sub.id] = sub
	c.mu.Unlock()

	f := frame.New(frame.SUBSCRIBE,
		hdrID, sub.id,
		hdrDestination, destination,
		hdrAck, "auto",
	)
	if err := c.write(f); err != nil {
		c.mu.Lock()
		delete(c.subs, sub.id)
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}
	return sub, nil
}

// Unsubscribe is idempotent.
func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		c := s.conn
		c.mu.Lock()
		delete(c.subs, s.id)
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if werr := c.write(frame.New(frame.UNSUBSCRIBE, hdrID, s.id)); werr != nil {
			err = fmt.Errorf("unsubscribe %s: %w", s.destination, werr)
		}
	})
	return err
}

func (c *Conn) Send(destination string, body []byte) error {
	f := frame.New(frame.SEND,
		hdrDestination, destination,
		hdrContentType, "application/json",
		hdrContentLength, strconv.Itoa(len(body)),
	)
	f.Body = body
	if err := c.write(f); err != nil {
		return fmt.Errorf("send to %s: %w", destination, err)
	}
	return nil
}

func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends DISCONNECT and a WebSocket close, then drops the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	alreadyClosed := c.closed || c.closing
	c.closing = true
	c.mu.Unlock()
	if alreadyClosed {
		return nil
	}

	_ = c.write(frame.New(frame.DISCONNECT, hdrReceipt, uuid.NewString()))
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.shutdown(nil)
	return nil
}

func (c *Conn) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.err = err
		c.subs = make(map[string]*subscription)
		c.mu.Unlock()

		c.ws.Close()
		close(c.done)
	})
}

func (c *Conn) write(f *frame.Frame) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	w, err := c.ws.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := frame.NewWriter(w).Write(f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// readFrame reads one WebSocket message as a STOMP frame. A nil frame with
// nil error is a heart-beat.
func (c *Conn) readFrame() (*frame.Frame, error) {
	_, r, err := c.ws.NextReader()
	if err != nil {
		return nil, err
	}
	return frame.NewReader(r).Read()
}

func (c *Conn) readLoop() {
	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		f, err := c.readFrame()
		if err != nil {
			c.mu.Lock()
			local := c.closed || c.closing
			c.mu.Unlock()
			if local {
				c.shutdown(nil)
				return
			}
			c.logger.Warnw("broker connection lost", "error", err)
			c.shutdown(fmt.Errorf("read frame: %w", err))
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if f == nil {
			continue
		}

		switch f.Command {
		case frame.MESSAGE:
			c.dispatch(f)
		case frame.ERROR:
			text := errorText(f)
			c.logger.Errorw("broker sent ERROR frame", "message", text)
			c.shutdown(fmt.Errorf("broker error: %s", text))
			return
		case frame.RECEIPT:
		default:
			c.logger.Debugw("ignoring frame", "command", f.Command)
		}
	}
}

func (c *Conn) dispatch(f *frame.Frame) {
	id := f.Header.Get(hdrSubscription)

	c.mu.Lock()
	sub, ok := c.subs[id]
	c.mu.Unlock()
	if !ok {
		return
	}

	msg := notification.Message{
		Destination: f.Header.Get(hdrDestination),
		Body:        f.Body,
	}
	if msg.Destination == "" {
		msg.Destination = sub.destination
	}
	goroutine.SafeCall(c.logger, "stomp-message:"+sub.destination, func() {
		sub.handler(msg)
	})
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.shutdown(fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}
