package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stake-plus/defcalls/src/actions"
	sharedconfig "github.com/stake-plus/defcalls/src/config"
	shareddata "github.com/stake-plus/defcalls/src/data"
	"github.com/stake-plus/defcalls/src/logging"
	"go.uber.org/zap"
)

func main() {
	log := logging.New(os.Getenv("DEFCALLS_ENV"))
	defer func() { _ = log.Sync() }()

	if path := os.Getenv(sharedconfig.FileEnvKey); path != "" {
		if err := sharedconfig.LoadFile(path); err != nil {
			log.Fatal("config file", zap.String("path", path), zap.Error(err))
		}
	}

	// Use a single DB connection for all modules
	dsn, err := shareddata.GetMySQLDSN()
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	db, err := shareddata.ConnectMySQL(dsn)
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	if err := shareddata.Migrate(db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	base := sharedconfig.LoadBase(db)
	rdb := shareddata.MustRedis(base.RedisURL)
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager, err := actions.StartAll(ctx, db, rdb, log)
	if err != nil {
		log.Fatal("actions start", zap.Error(err))
	}

	// Wait for termination
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info("shutting down", zap.String("signal", sig.String()))
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	manager.Stop(stopCtx)
}
