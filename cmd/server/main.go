package main

import (
	"context"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"

	"chatroom-api/internal/server"
	"chatroom-api/internal/storage"
	"chatroom-api/internal/sweeper"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	serverCfg := server.EnvConfig{}
	if err := env.Parse(&serverCfg); err != nil {
		sugar.Fatalf("Cannot parse server env config: %v", err)
	}

	storageCfg := storage.EnvConfig{}
	if err := env.Parse(&storageCfg); err != nil {
		sugar.Fatalf("Cannot parse storage env config: %v", err)
	}

	sweeperCfg := sweeper.EnvConfig{}
	if err := env.Parse(&sweeperCfg); err != nil {
		sugar.Fatalf("Cannot parse sweeper env config: %v", err)
	}

	store, err := storage.NewStore(context.Background(), sugar, storageCfg.Config(), storage.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.New(sugar, store, sweeperCfg.Interval, sweeperCfg.Threshold).Run(sweepCtx)

	serverOpts := []server.Option{
		server.WithEnvConfig(serverCfg),
		server.ReadTimeout(5 * time.Second),
		server.RegisterAfterShutdown(stopSweeper),
	}

	srv, err := server.NewServer(sugar, store, serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}
