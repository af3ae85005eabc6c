package handler

import (
	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/handler/health"
	"github.com/novaluna/payment-engine/internal/handler/payment"
	"github.com/novaluna/payment-engine/internal/store"
	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
	"github.com/novaluna/payment-engine/internal/verify"
)

type Handler struct {
	PaymentHandler payment.IHandler
	HealthHandler  health.IHealthHandler
}

func New(appConfig *config.AppConfig, logger *logger.Logger,
	db *gorm.DB,
	store *store.Store,
	orchestrator verify.IOrchestrator) *Handler {
	return &Handler{
		PaymentHandler: payment.New(db, store, orchestrator, logger, appConfig),
		HealthHandler:  health.New(db, logger),
	}
}
