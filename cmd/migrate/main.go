package main

import (
	"os"

	"github.com/novaluna/payment-engine/internal/model"
	pgstore "github.com/novaluna/payment-engine/internal/store/postgres"
	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

func main() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, logger)

	err := db.AutoMigrate(
		&model.LedgerTransaction{},
		&model.ProcessedReference{},
		&model.ScanWatermark{},
		&model.User{},
	)
	if err != nil {
		logger.Error("[main][AutoMigrate] failed to run migrations", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	logger.Info("migrations completed successfully")
}
