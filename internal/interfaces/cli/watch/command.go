// Package watch streams realtime notifications to stdout.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shoozy-shop/storefront/internal/application/notification"
	domainNotification "github.com/shoozy-shop/storefront/internal/domain/notification"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/bootstrap"
)

var coupons []string

func NewCommand(flags *bootstrap.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print realtime notifications until interrupted",
		Long:  `Connect to the notification broker, subscribe to the storefront topics and print every event as one JSON line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags)
		},
	}
	cmd.Flags().StringSliceVar(&coupons, "coupon", nil, "Also follow these coupon ids or codes")
	return cmd
}

type line struct {
	Category string          `json:"category"`
	Topic    string          `json:"topic"`
	Type     string          `json:"type"`
	Event    json.RawMessage `json:"event"`
}

// printer serialises writes from the hub's reader goroutine.
type printer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (p *printer) listener(category string) notification.Listener {
	return func(ev domainNotification.Event) {
		p.mu.Lock()
		defer p.mu.Unlock()
		_ = p.enc.Encode(line{Category: category, Topic: ev.Topic(), Type: ev.EventType(), Event: ev.Raw()})
	}
}

func newPrinter(w io.Writer) *printer {
	return &printer{enc: json.NewEncoder(w)}
}

func run(cmd *cobra.Command, flags *bootstrap.Flags) error {
	c, log, err := bootstrap.Build(flags)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the broker accepts anonymous clients; a session only adds the bearer
	c.Session.CheckAuth(ctx)

	p := newPrinter(cmd.OutOrStdout())
	c.Hub.AddRefreshListener(p.listener("refresh"))
	c.Hub.AddCouponListener(p.listener("coupon"))
	c.Hub.AddOrderListener(p.listener("order"))

	var (
		subsMu sync.Mutex
		subs   []*notification.EntitySubscription
	)
	c.Hub.OnStateChange(func(s notification.State) {
		log.Infow("hub state changed", "state", s.String())
		if s != notification.StateConnected {
			return
		}
		subsMu.Lock()
		defer subsMu.Unlock()
		subs = subs[:0]
		for _, id := range coupons {
			if sub := c.Hub.SubscribeToEntity(id, p.listener("coupon:"+id)); sub != nil {
				subs = append(subs, sub)
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	c.Hub.Connect(gctx)

	g.Go(func() error {
		<-gctx.Done()
		c.Hub.Disconnect()
		return nil
	})
	g.Go(func() error {
		return c.Hub.Wait(context.WithoutCancel(gctx))
	})

	err = g.Wait()

	subsMu.Lock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
	subsMu.Unlock()

	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
