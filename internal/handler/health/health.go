package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/utils/logger"
)

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type handler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func New(db *gorm.DB, logger *logger.Logger) IHealthHandler {
	return &handler{db: db, logger: logger}
}

// Healthz godoc
// @Summary Health check
// @Description Reports service and database liveness
// @id healthz
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *handler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		h.logger.Error("[Healthz] database unreachable", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
