// Copyright (c) 2023 xCherryIO Organization
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	rawLog "log"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/xcherryio/timers/cmd/server/bootstrap"
	"github.com/xcherryio/timers/config"
)

func main() {
	app := &cli.App{
		Name:  "timers worker",
		Usage: "start a timer dispatch worker",
		Action: func(c *cli.Context) error {
			startWorkerCli(c)
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  bootstrap.FlagConfig,
				Value: "./config/development.yaml",
				Usage: "the config to start the timers worker",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		rawLog.Fatal(err)
	}
}

func startWorkerCli(c *cli.Context) {
	// register interrupt signal for graceful shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	configPath := c.String(bootstrap.FlagConfig)
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		rawLog.Fatalf("Unable to load config for path %v because of error %v", configPath, err)
	}

	shutdownFunc := bootstrap.StartTimersWorker(rootCtx, cfg)
	// wait for os signals
	<-rootCtx.Done()

	ctx, cancF := context.WithTimeout(context.Background(), time.Second*30)
	defer cancF()
	if err := shutdownFunc(ctx); err != nil {
		fmt.Println("shutdown error:", err)
	}
}
