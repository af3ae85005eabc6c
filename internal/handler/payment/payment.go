package payment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/novaluna/payment-engine/internal/ledger"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/store"
	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
	"github.com/novaluna/payment-engine/internal/verify"
	"github.com/novaluna/payment-engine/internal/view"
)

type SubmitPaymentRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Chain    string `json:"chain" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	TxRef    string `json:"tx_ref" binding:"required"`
}

type PaymentResponse struct {
	Transaction *model.LedgerTransaction `json:"transaction"`
	Outcome     *verify.Outcome          `json:"outcome,omitempty"`
}

type handler struct {
	db           *gorm.DB
	store        *store.Store
	orchestrator verify.IOrchestrator
	logger       *logger.Logger
	appConfig    *config.AppConfig
}

func New(db *gorm.DB, store *store.Store, orchestrator verify.IOrchestrator, logger *logger.Logger, appConfig *config.AppConfig) IHandler {
	return &handler{
		db:           db,
		store:        store,
		orchestrator: orchestrator,
		logger:       logger,
		appConfig:    appConfig,
	}
}

// SubmitPayment godoc
// @Summary Submit a payment claim
// @Description Registers a claim that a payment was sent on-chain and runs one verification attempt
// @id submitPayment
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body SubmitPaymentRequest true "Payment claim"
// @Success 200 {object} view.ApiResponse[PaymentResponse]
// @Failure 400 {object} view.ApiResponse[any]
// @Failure 500 {object} view.ApiResponse[any]
// @Router /payments [post]
func (h *handler) SubmitPayment(c *gin.Context) {
	var req SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[SubmitPayment][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	if err := validator.New().Struct(req); err != nil {
		h.logger.Error("[SubmitPayment][Validator]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	chain, err := model.ParseChain(req.Chain)
	if err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "unsupported chain"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid amount"))
		return
	}

	ledgerTx, err := h.store.LedgerTransaction.GetByReference(h.db, chain, req.TxRef)
	if err != nil && !ledger.IsNotFound(err) {
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, req, "failed to look up claim"))
		return
	}
	if ledgerTx == nil {
		expiresAt := time.Now().Add(time.Duration(h.appConfig.Payment.ExpiryHours) * time.Hour)
		ledgerTx, err = h.store.LedgerTransaction.Create(h.db, &model.LedgerTransaction{
			UserID:    req.UserID,
			Type:      model.TransactionTypeDeposit,
			TxRef:     req.TxRef,
			Chain:     chain,
			Currency:  req.Currency,
			Amount:    amount,
			Status:    model.TransactionStatusPending,
			ExpiresAt: &expiresAt,
		})
		if err != nil {
			// A concurrent first submission can win the unique (chain, tx_ref)
			// index between our lookup and this insert. The loser reuses the
			// winner's row instead of surfacing the conflict.
			ledgerTx, err = h.store.LedgerTransaction.GetByReference(h.db, chain, req.TxRef)
			if err != nil {
				h.logger.Error("[SubmitPayment][Create]", map[string]string{
					"txRef": req.TxRef,
					"error": err.Error(),
				})
				c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, req, "failed to record claim"))
				return
			}
		}
	}

	claim := &model.PaymentClaim{
		UserID:         ledgerTx.UserID,
		Chain:          chain,
		Currency:       ledgerTx.Currency,
		ExpectedAmount: ledgerTx.Amount,
		TxRef:          ledgerTx.TxRef,
		CreatedAt:      ledgerTx.CreatedAt,
	}

	outcome, err := h.orchestrator.VerifyPayment(c.Request.Context(), claim)
	if err != nil {
		h.logger.Error("[SubmitPayment][VerifyPayment]", map[string]string{
			"txRef": req.TxRef,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, req, "verification failed"))
		return
	}

	// Reload so the response reflects any transition the attempt made.
	ledgerTx, err = h.store.LedgerTransaction.GetByReference(h.db, chain, req.TxRef)
	if err != nil {
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, req, "failed to load claim"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(PaymentResponse{
		Transaction: ledgerTx,
		Outcome:     outcome,
	}, nil, nil, ""))
}

// GetPayment godoc
// @Summary Get payment claim status
// @Description Returns the current state of a payment claim by chain and transaction reference
// @id getPayment
// @Tags Payment
// @Produce json
// @Param chain query string true "Chain name"
// @Param tx_ref path string true "Transaction reference"
// @Success 200 {object} view.ApiResponse[PaymentResponse]
// @Failure 400 {object} view.ApiResponse[any]
// @Failure 404 {object} view.ApiResponse[any]
// @Router /payments/{tx_ref} [get]
func (h *handler) GetPayment(c *gin.Context) {
	txRef := c.Param("tx_ref")

	chain, err := model.ParseChain(c.Query("chain"))
	if err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, nil, "unsupported chain"))
		return
	}

	ledgerTx, err := h.store.LedgerTransaction.GetByReference(h.db, chain, txRef)
	if err != nil {
		if ledger.IsNotFound(err) {
			c.JSON(http.StatusNotFound, view.CreateResponse[any](nil, err, nil, "claim not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to load claim"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(PaymentResponse{Transaction: ledgerTx}, nil, nil, ""))
}
