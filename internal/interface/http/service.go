package httpservice

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/strait-labs/straitd/internal/config"
	"github.com/strait-labs/straitd/internal/core/domain"
	interfaces "github.com/strait-labs/straitd/internal/interface"
	"github.com/strait-labs/straitd/internal/interface/http/handlers"
)

type Config struct {
	Port           uint32
	AllowedOrigins []string
}

func (c Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("missing port")
	}
	return nil
}

func (c Config) address() string {
	return fmt.Sprintf(":%d", c.Port)
}

type service struct {
	version       string
	config        Config
	appConfig     *config.Config
	server        *http.Server
	appSvcStarted atomic.Bool
}

func NewService(
	version string, svcConfig Config, appConfig *config.Config,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{
		version:   version,
		config:    svcConfig,
		appConfig: appConfig,
	}, nil
}

func (s *service) Start() error {
	if err := s.start(); err != nil {
		return err
	}
	log.Infof("started listening at %s", s.config.address())

	return s.startAppService()
}

func (s *service) Stop() {
	s.stop()
	log.Info("shutdown service")
}

func (s *service) start() error {
	if err := s.newServer(); err != nil {
		return err
	}

	// nolint:all
	go s.server.ListenAndServe()

	return nil
}

func (s *service) stop() {
	if s.appSvcStarted.CompareAndSwap(true, false) {
		appSvc, _ := s.appConfig.AppService()
		if appSvc != nil {
			appSvc.Stop()
		}
	}

	if s.server != nil {
		// nolint:all
		s.server.Close()
	}
}

func (s *service) startAppService() error {
	if !s.appSvcStarted.CompareAndSwap(false, true) {
		// app already started, skip
		return nil
	}

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to create app service: %w", err)
	}
	if err := appSvc.Start(); err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to start app service: %w", err)
	}
	log.Info("started app service")
	return nil
}

func (s *service) newServer() error {
	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return fmt.Errorf("failed to create app service: %w", err)
	}
	handler := handlers.NewHandler(s.version, appSvc, s.appConfig.AdminService())
	operator := domain.Authority(s.appConfig.OperatorToken)

	mux := chi.NewRouter()
	mux.Use(requestLogger)
	mux.Use(recoverer)
	mux.Use(corsHandler(s.config.AllowedOrigins))
	mux.Use(middleware.Heartbeat("/ping"))

	mux.Route("/v1", func(r chi.Router) {
		r.Get("/info", handler.GetInfo)
		r.Get("/quote", handler.GetQuote)
		r.Get("/reserves", handler.GetReserves)
		r.Get("/mappings", handler.ListMappings)
		r.Get("/supply/{domain}/{asset}", handler.GetSupply)
		r.Get("/balances/{domain}/{asset}/{holder}", handler.GetWrappedBalance)

		r.Post("/swaps", handler.SubmitSwap)
		r.Get("/swaps", handler.ListTransfers)
		r.Get("/swaps/{requestID}", handler.GetTransfer)

		r.Route("/admin", func(r chi.Router) {
			r.Use(operatorGate(operator))
			r.Post("/mappings", handler.RegisterMapping)
			r.Post("/assets", handler.AddSupportedAsset)
			r.Delete("/assets/{asset}", handler.RemoveSupportedAsset)
			r.Post("/rate", handler.SetRate)
			r.Post("/liquidity", handler.AddLiquidity)
			r.Post("/audit", handler.RunAudit)
			r.Post("/resume-minting", handler.ResumeMinting)
		})
	})

	s.server = &http.Server{
		Addr:    s.config.address(),
		Handler: mux,
	}

	return nil
}
