package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/labstack/echo/v4"
	"github.com/soffa-projects/jobrpc/adapters"
	f "github.com/soffa-projects/jobrpc/core"
	"github.com/soffa-projects/jobrpc/log"
)

const (
	DefaultTimeout     = 130 * time.Second
	DefaultDynamicHost = "127.0.0.1"
	healthCheckTimeout = 2 * time.Second
)

type Config struct {
	// Upstream is the automation server every fixed route forwards to.
	Upstream string `validate:"required,url"`
	// Timeout bounds one upstream exchange.
	Timeout time.Duration `validate:"gte=0"`
	// DynamicHost is where /t/{port}/... requests go.
	DynamicHost string `validate:"omitempty,hostname|ip"`
	// AllowOrigins turns CORS on for these origins.
	AllowOrigins []string `validate:"dive,required"`
	// Quiet turns the access log off.
	Quiet bool
}

// Server is a transparent relay in front of the automation server that
// records every exchange in an audit sink. Its configuration is fixed at
// construction.
type Server struct {
	cfg           Config
	upstream      *url.URL
	sink          f.AuditSink
	client        *resty.Client
	router        *echo.Echo
	auditFailures atomic.Int64
	now           func() time.Time
}

func New(cfg Config, sink f.AuditSink) (*Server, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DynamicHost == "" {
		cfg.DynamicHost = DefaultDynamicHost
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid proxy configuration: %w", err)
	}
	if sink == nil {
		return nil, errors.New("invalid proxy configuration: an audit sink is required")
	}
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream %q: %w", cfg.Upstream, err)
	}
	if upstream.Scheme != "http" && upstream.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream %q: scheme must be http or https", cfg.Upstream)
	}

	router := adapters.NewEchoRouter(adapters.RouterConfig{
		AllowOrigins: cfg.AllowOrigins,
		Quiet:        cfg.Quiet,
	})
	s := &Server{
		cfg:      cfg,
		upstream: upstream,
		sink:     sink,
		client:   newForwardClient(cfg.Timeout),
		router:   router,
		now:      time.Now,
	}
	s.routes()
	return s, nil
}

func newForwardClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetLogger(log.Logger()).
		SetAllowGetMethodPayload(true).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			// redirects go back to the client untouched
			return http.ErrUseLastResponse
		}))
}

func (s *Server) routes() {
	e := s.router
	e.GET("/_tee/health", s.health)

	e.POST("/enqueue", s.relayUpstream)
	e.GET("/get_result", s.relayUpstream)
	e.GET("/job/:id", s.relayUpstream)
	e.POST("/rpc", s.relayUpstream)
	e.Any("/t/:port/*", s.relayDynamic)
	e.Any("/*", s.relayUpstream)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Upstream() string {
	return s.upstream.String()
}

// AuditFailures counts exchanges whose audit record could not be written.
func (s *Server) AuditFailures() int64 {
	return s.auditFailures.Load()
}

// Start listens on addr until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start(addr string) error {
	log.Info("tee listening on %s, forwarding to %s", addr, s.upstream)
	return s.router.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	failures := s.AuditFailures()
	report := f.NewHealthCheck("jobrpc-tee").
		AddOptional("upstream", map[string]any{"url": s.upstream.String()}, func() error {
			_, err := s.client.R().SetContext(ctx).Head(s.upstream.String())
			return err
		}).
		AddOptional("audit", map[string]any{"failures": failures}, func() error {
			if failures > 0 {
				return fmt.Errorf("%d audit records could not be written", failures)
			}
			return nil
		}).
		Build()
	return c.JSON(http.StatusOK, report)
}
