// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	rawLog "log"

	"go.uber.org/multierr"

	"github.com/xcherryio/timers/common/log"
	"github.com/xcherryio/timers/common/log/tag"
	"github.com/xcherryio/timers/config"
	"github.com/xcherryio/timers/engine"
	redisstore "github.com/xcherryio/timers/extensions/redis"
	"github.com/xcherryio/timers/router"
	"github.com/xcherryio/timers/service/admin"
)

const FlagConfig = "config"

type GracefulShutdown func(ctx context.Context) error

// StartTimersWorker wires the store, engine and the optional admin server
// together and starts them. Embedding applications call this with their
// routers; the returned function performs the graceful shutdown.
func StartTimersWorker(
	rootCtx context.Context, cfg *config.Config, routers ...*router.Router,
) GracefulShutdown {
	zapLogger, err := cfg.Log.NewZapLogger()
	if err != nil {
		rawLog.Fatalf("Unable to create a new zap logger %v", err)
	}
	logger := log.NewLogger(zapLogger)
	logger.Info("config is loaded", tag.Value(cfg.String()))
	if err = cfg.ValidateAndSetDefaults(); err != nil {
		logger.Fatal("config is invalid", tag.Error(err))
	}

	store, err := redisstore.NewTimerStore(*cfg, logger)
	if err != nil {
		logger.Fatal("error on store setup", tag.Error(err))
	}

	timerEngine := engine.NewEngine(*cfg, store, logger.WithTags(tag.Service("engine")))
	for _, r := range routers {
		if err := timerEngine.IncludeRouter(r); err != nil {
			logger.Fatal("failed to include router", tag.Error(err))
		}
	}
	if err := timerEngine.Start(); err != nil {
		logger.Fatal("failed to start timer engine", tag.Error(err))
	}

	var adminServer admin.Server
	if cfg.AdminService.Enabled {
		adminServer = admin.NewDefaultAdminServerWithGin(
			rootCtx, *cfg, store, logger.WithTags(tag.Service("admin")))
		if err := adminServer.Start(); err != nil {
			logger.Fatal("failed to start admin server", tag.Error(err))
		}
	}

	return func(ctx context.Context) error {
		var errs error
		if adminServer != nil {
			errs = multierr.Append(errs, adminServer.Stop(ctx))
		}
		errs = multierr.Append(errs, timerEngine.Stop(ctx))
		errs = multierr.Append(errs, store.Close())
		return errs
	}
}
