package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/looplj/lakegate/internal/build"
	"github.com/looplj/lakegate/internal/log"
	"github.com/looplj/lakegate/internal/server/biz"
	"github.com/looplj/lakegate/internal/store"
)

type Params struct {
	fx.In

	Config     Config
	Governance *biz.GovernanceService
	Ledger     *biz.LedgerService
}

// Server is the HTTP surface of the governance core.
type Server struct {
	Config Config

	governance *biz.GovernanceService
	ledger     *biz.LedgerService
	httpServer *http.Server
}

func New(params Params) *Server {
	s := &Server{
		Config:     params.Config,
		governance: params.Governance,
		ledger:     params.Ledger,
	}

	if !s.Config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	s.registerRoutes(engine)

	readTimeout := s.Config.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.Config.Port),
		Handler:     engine,
		ReadTimeout: readTimeout,
	}

	return s
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	log.Info(context.Background(), "server: listening",
		log.String("name", s.Config.Name),
		log.String("version", build.Short()),
		log.Int("port", s.Config.Port),
	)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Module assembles the server with its dependencies.
var Module = fx.Module("server",
	store.Module,
	biz.Module,
	fx.Provide(New),
)

// Run boots the fx application with the server module plus caller options.
func Run(opts ...fx.Option) {
	app := fx.New(append([]fx.Option{Module}, opts...)...)
	app.Run()
}
