package webserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stake-plus/defcalls/src/config"
	"go.uber.org/zap"
)

// Module runs the API server under the action manager.
type Module struct {
	cfg  config.WebConfig
	srv  *http.Server
	log  *zap.Logger
	done chan struct{}
	mu   sync.Mutex
	addr net.Addr
}

// NewModule builds the router and wraps it in an http.Server.
func NewModule(cfg config.WebConfig, deps Deps) *Module {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("web")
	deps.Log = log
	if cfg.Base.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Module{
		cfg: cfg,
		srv: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           New(cfg, deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (m *Module) Name() string { return "web" }

func (m *Module) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.srv.Addr)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.addr = ln.Addr()
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("http server stopped", zap.Error(err))
		}
	}()
	m.log.Info("api listening", zap.String("addr", ln.Addr().String()))
	return nil
}

func (m *Module) Stop(ctx context.Context) {
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(shutCtx); err != nil {
		m.log.Warn("http shutdown", zap.Error(err))
	}
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Addr is the bound listener address, nil before Start.
func (m *Module) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}
