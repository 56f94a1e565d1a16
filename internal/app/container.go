// Package app wires the storefront client together: storage, the REST
// client and its interceptor, the session manager, the router with its auth
// guard, the notification hub and the payment helper.
package app

import (
	"fmt"
	"net/http"

	"github.com/shoozy-shop/storefront/internal/application/notification"
	"github.com/shoozy-shop/storefront/internal/application/session"
	"github.com/shoozy-shop/storefront/internal/infrastructure/api"
	"github.com/shoozy-shop/storefront/internal/infrastructure/config"
	"github.com/shoozy-shop/storefront/internal/infrastructure/payment"
	"github.com/shoozy-shop/storefront/internal/infrastructure/stomp"
	"github.com/shoozy-shop/storefront/internal/infrastructure/storage"
	"github.com/shoozy-shop/storefront/internal/interfaces/router"
	"github.com/shoozy-shop/storefront/internal/shared/logger"
	"github.com/shoozy-shop/storefront/internal/shared/services/markdown"
)

// Container holds every long-lived component. Shutdown releases them.
type Container struct {
	cfg *config.Config
	log logger.Interface

	Router  *router.Router
	Session *session.Manager
	Hub     *notification.Hub

	Transport *api.AuthTransport
	Auth      *api.AuthAPI
	Coupons   *api.CouponAPI
	Orders    *api.OrderAPI
	Returns   *api.ReturnAPI
	Chat      *api.ChatAPI
	Payment   *payment.Service

	closeStore func() error
}

// Option adjusts wiring, mainly for tests.
type Option func(*options)

type options struct {
	baseTransport http.RoundTripper
	durable       storage.Store
	sessionOpts   []session.Option
}

// WithBaseTransport replaces the HTTP transport under the auth interceptor.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.baseTransport = rt
	}
}

// WithDurableStore bypasses the configured session store.
func WithDurableStore(s storage.Store) Option {
	return func(o *options) {
		o.durable = s
	}
}

func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

func New(cfg *config.Config, log logger.Interface, opts ...Option) (*Container, error) {
	o := options{baseTransport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{cfg: cfg, log: log, closeStore: func() error { return nil }}

	durable := o.durable
	if durable == nil {
		store, closeFn, err := storage.NewDurable(cfg.Session, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		durable = store
		c.closeStore = closeFn
	}

	routes := router.DefaultRoutes()
	if cfg.Routes.File != "" {
		loaded, err := router.LoadRoutes(cfg.Routes.File)
		if err != nil {
			_ = c.closeStore()
			return nil, err
		}
		routes = loaded
	}
	c.Router = router.New(routes, log.Named("router"))

	c.Transport = api.NewAuthTransport(o.baseTransport, log.Named("http"),
		api.WithCooldown(cfg.API.LogoutCooldown),
	)
	client := api.NewClient(cfg.API.BaseURL,
		api.WithTransport(c.Transport),
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log.Named("api")),
	)

	renderer := markdown.NewRenderer()
	c.Auth = api.NewAuthAPI(client)
	c.Coupons = api.NewCouponAPI(client)
	c.Orders = api.NewOrderAPI(client)
	c.Returns = api.NewReturnAPI(client)
	c.Chat = api.NewChatAPI(client, renderer)

	sessionOpts := append([]session.Option{
		session.WithExpirySkew(cfg.Session.ExpirySkew),
		session.WithRenderer(renderer),
	}, o.sessionOpts...)
	c.Session = session.NewManager(c.Auth, durable, c.Router, log.Named("session"), sessionOpts...)

	// The guard and the interceptor both need the manager, which itself
	// navigates through the router.
	c.Router.BeforeEach(router.NewAuthGuard(c.Session, log.Named("guard")))
	c.Transport.Bind(c.Session)

	dialer := stomp.NewDialer(cfg.Broker.URL, log.Named("stomp"),
		stomp.WithHandshakeTimeout(cfg.Broker.HandshakeWait),
		stomp.WithTokenSource(c.Session.Token),
	)
	c.Hub = notification.NewHub(dialer, log.Named("hub"),
		notification.WithReconnectDelay(cfg.Broker.ReconnectDelay),
	)

	c.Payment = payment.NewService(cfg.Payment, log.Named("payment"))

	return c, nil
}

func (c *Container) Config() *config.Config {
	return c.cfg
}

// Shutdown disconnects the hub and closes the session store.
func (c *Container) Shutdown() error {
	c.Hub.Disconnect()
	if err := c.closeStore(); err != nil {
		c.log.Errorw("failed to close session store", "error", err)
		return err
	}
	return nil
}
