package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/TooLazyToCreate/counseling-service/config"
	"github.com/TooLazyToCreate/counseling-service/internal/app"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	/* .env is optional: in containers the variables come from the environment */
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal("Error loading .env file; Error - " + err.Error())
	}
	cfg := config.MustLoad()

	zapConfig := zap.NewProductionConfig()
	if cfg.IsDev() {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		zapConfig.Development = true
	} else {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zapConfig.Development = false
	}
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatal("Logger initialization failed with error - " + err.Error())
	}
	defer logger.Sync()

	if err = app.Run(logger, cfg); err != nil {
		logger.Fatal("Server have been stopped with error", zap.Error(err))
	}
	logger.Info("Server have been stopped.")
}
