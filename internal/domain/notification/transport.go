package notification

import "context"

// Message is a raw frame delivered on a broker destination.
type Message struct {
	Destination string
	Body        []byte
}

// Subscription is one live destination subscription.
type Subscription interface {
	Unsubscribe() error
}

// Conn is an established broker session.
type Conn interface {
	// Subscribe registers handler for destination. Handlers run on the
	// connection's reader goroutine, one message at a time.
	Subscribe(destination string, handler func(Message)) (Subscription, error)
	Send(destination string, body []byte) error
	// Done is closed once the connection is gone for any reason.
	Done() <-chan struct{}
	// Err reports why Done was closed; nil after a local Close.
	Err() error
	Close() error
}

// Dialer opens broker sessions.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
