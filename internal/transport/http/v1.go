package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novaluna/payment-engine/internal/handler"
	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler, appConfig *config.AppConfig, logger *logger.Logger) {
	v1 := r.Group("/api/v1")

	payments := v1.Group("/payments")
	{
		payments.POST("", h.PaymentHandler.SubmitPayment)
		payments.GET("/:tx_ref", h.PaymentHandler.GetPayment)
	}

	// health check
	r.GET("/healthz", h.HealthHandler.Healthz)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
