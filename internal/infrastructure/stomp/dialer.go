// Package stomp is a STOMP 1.2 client over WebSocket, the transport Spring's
// message broker relay speaks.
package stomp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"

	"github.com/shoozy-shop/storefront/internal/domain/notification"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
)

const (
	defaultHandshakeTimeout = 10 * time.Second

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1 << 20
)

// STOMP header names.
const (
	hdrAcceptVersion = "accept-version"
	hdrHost          = "host"
	hdrHeartBeat     = "heart-beat"
	hdrAuthorization = "Authorization"
	hdrDestination   = "destination"
	hdrID            = "id"
	hdrAck           = "ack"
	hdrSubscription  = "subscription"
	hdrContentType   = "content-type"
	hdrContentLength = "content-length"
	hdrMessage       = "message"
	hdrReceipt       = "receipt"
)

// Dialer opens STOMP sessions to a fixed WebSocket endpoint.
type Dialer struct {
	url              string
	handshakeTimeout time.Duration
	tokenSource      func() string
	logger           logger.Interface
}

type DialerOption func(*Dialer)

func WithHandshakeTimeout(d time.Duration) DialerOption {
	return func(dl *Dialer) {
		if d > 0 {
			dl.handshakeTimeout = d
		}
	}
}

// WithTokenSource adds "Authorization: Bearer <token>" to CONNECT when the
// source returns a non-empty token.
func WithTokenSource(fn func() string) DialerOption {
	return func(dl *Dialer) {
		dl.tokenSource = fn
	}
}

func NewDialer(endpoint string, log logger.Interface, opts ...DialerOption) *Dialer {
	d := &Dialer{
		url:              endpoint,
		handshakeTimeout: defaultHandshakeTimeout,
		logger:           log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ notification.Dialer = (*Dialer)(nil)

// Dial performs the WebSocket upgrade and the STOMP CONNECT handshake.
func (d *Dialer) Dial(ctx context.Context) (notification.Conn, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}

	wsDialer := websocket.Dialer{
		HandshakeTimeout: d.handshakeTimeout,
	}

	ws, resp, err := wsDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed: status=%d, err=%w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := newConn(ws, d.logger)
	if err := c.handshake(ctx, u.Host, d.token(), d.handshakeTimeout); err != nil {
		ws.Close()
		return nil, err
	}

	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

func (d *Dialer) token() string {
	if d.tokenSource == nil {
		return ""
	}
	return d.tokenSource()
}

// handshake sends CONNECT and waits for CONNECTED or ERROR.
func (c *Conn) handshake(ctx context.Context, host, token string, timeout time.Duration) error {
	connect := frame.New(frame.CONNECT,
		hdrAcceptVersion, "1.2,1.1",
		hdrHost, host,
		hdrHeartBeat, "0,0",
	)
	if token != "" {
		connect.Header.Add(hdrAuthorization, "Bearer "+token)
	}
	if err := c.write(connect); err != nil {
		return fmt.Errorf("send CONNECT: %w", err)
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.ws.SetReadDeadline(deadline)
	defer c.ws.SetReadDeadline(time.Time{})

	for {
		f, err := c.readFrame()
		if err != nil {
			return fmt.Errorf("await CONNECTED: %w", err)
		}
		if f == nil {
			continue
		}
		switch f.Command {
		case frame.CONNECTED:
			return nil
		case frame.ERROR:
			return fmt.Errorf("broker rejected CONNECT: %s", errorText(f))
		default:
			return fmt.Errorf("unexpected %s frame during handshake", f.Command)
		}
	}
}

func errorText(f *frame.Frame) string {
	msg := f.Header.Get(hdrMessage)
	if len(f.Body) > 0 {
		if msg != "" {
			return msg + ": " + string(f.Body)
		}
		return string(f.Body)
	}
	if msg == "" {
		return "unknown error"
	}
	return msg
}

// ErrClosed is returned by writes on a closed connection.
var ErrClosed = errors.New("stomp: connection closed")
