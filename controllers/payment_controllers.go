package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/services"
	"github.com/yeremiapane/restaurant-pay/utils"
)

// ChargeCreator is the processor call the controller depends on. The real
// implementation is services.MercadoPagoService; tests substitute a stub.
type ChargeCreator interface {
	CreateCardPayment(accessToken string, p *services.NormalizedPayment) (*services.ChargeResult, error)
}

type PaymentController struct {
	DB         *gorm.DB
	Gateway    ChargeCreator
	Reconciler *services.ReconcilerService
	Notifier   *services.NotifierService
	Monitor    *services.ReconciliationMonitor
}

func NewPaymentController(db *gorm.DB, gateway ChargeCreator, reconciler *services.ReconcilerService,
	notifier *services.NotifierService, monitor *services.ReconciliationMonitor) *PaymentController {
	return &PaymentController{
		DB:         db,
		Gateway:    gateway,
		Reconciler: reconciler,
		Notifier:   notifier,
		Monitor:    monitor,
	}
}

// ProcessPayment -> POST /api/process_payment
// Validator -> gateway -> reconciler -> notifier. Only the reconciler's
// work is transactional; everything after it is best-effort.
func (pc *PaymentController) ProcessPayment(c *gin.Context) {
	var body services.PaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondFieldError(c, http.StatusBadRequest, "Invalid request body.", "body")
		return
	}

	normalized, err := services.ValidatePaymentRequest(&body)
	if err != nil {
		var missing *services.MissingFieldError
		if errors.As(err, &missing) {
			utils.RespondFieldError(c, http.StatusBadRequest, missing.Error(), missing.Field)
			return
		}
		utils.RespondFieldError(c, http.StatusBadRequest, "Invalid amount.", "amount")
		return
	}

	var bill models.Bill
	if err := pc.DB.Preload("Table").Preload("Table.Restaurant").First(&bill, normalized.BillID).Error; err != nil {
		utils.RespondFieldError(c, http.StatusBadRequest, "Bill not found.", "bill_id")
		return
	}

	if bill.IsPaid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Bill already paid.",
			"field": "bill_id",
		})
		return
	}

	// Cheap pre-charge guard; the reconciler re-checks under the store's
	// own conditions since another guest may pay in between.
	if normalized.Amount > bill.Outstanding()+utils.AmountTolerance {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Amount exceeds outstanding balance.",
			"field":   "amount",
			"details": fmt.Sprintf("outstanding balance is %s", utils.FormatAmount(bill.Outstanding())),
		})
		return
	}

	merchantToken := bill.Table.Restaurant.MarketplaceToken
	if merchantToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Restaurant not configured for payments.",
			"details": "Missing marketplace access token",
		})
		return
	}

	charge, err := pc.Gateway.CreateCardPayment(merchantToken, normalized)
	if err != nil {
		var procErr *services.ProcessorError
		switch {
		case errors.As(err, &procErr):
			utils.ErrorLogger.Printf("Processor unavailable for bill %d: %v", bill.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Payment processing failed",
				"details": procErr.Body,
			})
		case errors.Is(err, services.ErrMerchantNotConfigured):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Restaurant not configured for payments.",
				"details": "Missing marketplace access token",
			})
		default:
			utils.ErrorLogger.Printf("Error creating charge for bill %d: %v", bill.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"details": err.Error(),
			})
		}
		return
	}

	// A decline is a business outcome: report it verbatim, touch nothing.
	if !charge.Approved {
		if pc.Monitor != nil {
			pc.Monitor.RecordDeclined()
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Payment not approved",
			"status":  charge.Status,
			"details": charge.StatusDetail,
		})
		return
	}

	result, err := pc.Reconciler.Settle(bill.ID, normalized.Payer.Email, charge)
	if err != nil {
		// The charge has already been captured: never answer "try again".
		switch {
		case errors.Is(err, services.ErrSettlementConflict):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Payment captured but not recorded",
				"details": "flagged for manual reconciliation, do not retry",
			})
		case errors.Is(err, services.ErrOverpaymentRejected):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Payment exceeds outstanding balance",
				"details": "charge captured, flagged for operator review",
			})
		default:
			utils.ErrorLogger.Printf("Error settling charge %s on bill %d: %v", charge.ProcessorPaymentID, bill.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"details": err.Error(),
			})
		}
		return
	}

	if pc.Monitor != nil {
		pc.Monitor.RecordApproved()
	}

	response := gin.H{
		"message":       "Payment processed successfully",
		"billFullyPaid": result.BillFullyPaid,
	}

	if result.BillFullyPaid {
		newQRCode, warning := pc.Notifier.AfterFullSettlement(bill.TableID, bill.ID, result.AmountApplied)
		if newQRCode != "" {
			response["newQRGenerated"] = true
			response["message"] = "Table ready for next service with new QR code"
		}
		if warning != "" {
			response["warning"] = warning
		}
	} else {
		pc.Notifier.NotifyPartial(bill.TableID, bill.ID, result.AmountApplied)
	}

	c.JSON(http.StatusOK, response)
}
