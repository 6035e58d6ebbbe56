package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/events"
	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/utils"
)

// NotifierService runs after a settlement committed. Everything here is
// best-effort: the charge and the ledger update are already final, so a
// failure is logged and reported as a warning, never rolled back into the
// payment outcome.
type NotifierService struct {
	db      *gorm.DB
	monitor *ReconciliationMonitor
}

// NewNotifierService creates a new NotifierService. monitor may be nil.
func NewNotifierService(db *gorm.DB, monitor *ReconciliationMonitor) *NotifierService {
	return &NotifierService{
		db:      db,
		monitor: monitor,
	}
}

// NotifyPartial broadcasts a partial-settlement event to the bill's viewers.
func (ns *NotifierService) NotifyPartial(tableID, billID uint, amount float64) {
	events.BroadcastPaymentEvent(tableID, events.PaymentEvent{
		Status:        "success",
		Amount:        amount,
		BillID:        billID,
		BillFullyPaid: false,
	})
}

// AfterFullSettlement rotates the table's guest access token, so the next
// dining party cannot reuse a stale QR code, and broadcasts the payment
// event. Returns the new QR payload URL when rotation worked and a
// non-empty warning when any step failed.
func (ns *NotifierService) AfterFullSettlement(tableID, billID uint, amount float64) (newQRCode string, warning string) {
	newQRCode, err := ns.rotateTableToken(tableID)
	if err != nil {
		utils.ErrorLogger.Printf("Failed to rotate token for table %d after bill %d: %v", tableID, billID, err)
		if ns.monitor != nil {
			ns.monitor.RecordNotificationFailure()
		}
		warning = "table token rotation failed, flagged for manual intervention"
	} else {
		utils.InfoLogger.Printf("Table %d token rotated after bill %d completion", tableID, billID)
	}

	event := events.PaymentEvent{
		Status:        "success",
		Amount:        amount,
		BillID:        billID,
		BillFullyPaid: true,
	}
	if newQRCode != "" {
		event.NewQRCode = newQRCode
		event.Message = "New QR code generated for next service"
	}
	events.BroadcastPaymentEvent(tableID, event)

	return newQRCode, warning
}

// rotateTableToken issues a fresh access token for the table, persists it
// and blacklists the old one.
func (ns *NotifierService) rotateTableToken(tableID uint) (string, error) {
	var table models.Table
	if err := ns.db.First(&table, tableID).Error; err != nil {
		return "", fmt.Errorf("failed to find table %d: %w", tableID, err)
	}

	token, err := utils.GenerateTableToken(tableID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	oldToken := table.AccessToken
	if err := ns.db.Model(&models.Table{}).
		Where("id = ?", tableID).
		Updates(map[string]interface{}{
			"access_token": token,
			"updated_at":   time.Now(),
		}).Error; err != nil {
		return "", fmt.Errorf("failed to store new token: %w", err)
	}

	utils.RevokeTableToken(oldToken)
	return utils.QRPayloadURL(tableID, token), nil
}
