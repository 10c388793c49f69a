package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Wikid82/ipguard/internal/config"
	"github.com/Wikid82/ipguard/internal/database"
	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/server"
	"github.com/Wikid82/ipguard/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Setup logging with rotation
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		log.Fatalf("create log dir: %v", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "ipguard.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	// Log to both stdout and file
	mw := io.MultiWriter(os.Stdout, rotator)
	log.SetOutput(mw)
	logger.Init(cfg.Debug, mw)

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		logger.Log().WithError(err).Fatal("connect database")
	}

	// Handle CLI commands
	if len(os.Args) > 1 && os.Args[1] != "serve" {
		if err := runCommand(context.Background(), os.Stdout, db, cfg, os.Args[1:]); err != nil {
			logger.Log().WithError(err).Fatal(os.Args[1])
		}
		return
	}

	logger.Log().WithField("version", version.Full()).Infof("starting %s", version.Name)

	srv, err := server.New(db, cfg)
	if err != nil {
		logger.Log().WithError(err).Fatal("build server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Log().WithError(err).Fatal("server error")
	}
	logger.Log().Info("shutdown complete")
}
