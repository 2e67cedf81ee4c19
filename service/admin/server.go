// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package admin

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xcherryio/timers/common/log"
	"github.com/xcherryio/timers/common/log/tag"
	"github.com/xcherryio/timers/config"
	"github.com/xcherryio/timers/persistence"
)

const PathHealthz = "/api/v1/timers/health"
const PathListTimers = "/api/v1/timers"

type Server interface {
	Start() error
	Stop(ctx context.Context) error
}

type defaultServer struct {
	rootCtx context.Context
	cfg     config.Config
	logger  log.Logger

	ginEngine  *gin.Engine
	httpServer *http.Server
}

// NewDefaultAdminServerWithGin serves the health and timer inspection
// endpoints on cfg.AdminService.Address
func NewDefaultAdminServerWithGin(
	rootCtx context.Context, cfg config.Config, store persistence.TimerStore, logger log.Logger,
) Server {
	ginEngine := gin.Default()

	handler := newGinHandler(cfg, store, logger)
	ginEngine.GET(PathHealthz, handler.Healthz)
	ginEngine.GET(PathListTimers, handler.ListTimers)

	svrCfg := cfg.AdminService
	httpServer := &http.Server{
		Addr:         svrCfg.Address,
		ReadTimeout:  svrCfg.ReadTimeout.Duration(),
		WriteTimeout: svrCfg.WriteTimeout.Duration(),
		Handler:      ginEngine,
		BaseContext: func(listener net.Listener) context.Context {
			// for graceful shutdown
			return rootCtx
		},
	}

	return &defaultServer{
		rootCtx:    rootCtx,
		cfg:        cfg,
		logger:     logger,
		ginEngine:  ginEngine,
		httpServer: httpServer,
	}
}

func (s *defaultServer) Start() error {
	go func() {
		err := s.httpServer.ListenAndServe()
		s.logger.Info("admin http server is closed", tag.Error(err))
	}()
	return nil
}

func (s *defaultServer) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
