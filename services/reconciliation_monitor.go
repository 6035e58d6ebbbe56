package services

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/utils"
)

// ReconciliationMetrics holds counters for payment outcomes.
type ReconciliationMetrics struct {
	ApprovedCharges      int64
	DeclinedCharges      int64
	SettlementConflicts  int64
	OverpaymentsRejected int64
	NotificationFailures int64
}

// ReconciliationMonitor tracks payment outcomes and persists operator
// alerts for charges that were captured by the processor but could not be
// applied to the ledger.
type ReconciliationMonitor struct {
	db       *gorm.DB
	metrics  ReconciliationMetrics
	interval time.Duration
	stopChan chan struct{}
	mutex    sync.Mutex
}

// NewReconciliationMonitor creates a new ReconciliationMonitor.
func NewReconciliationMonitor(db *gorm.DB) *ReconciliationMonitor {
	return &ReconciliationMonitor{
		db:       db,
		interval: 5 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic summary goroutine.
func (rm *ReconciliationMonitor) Start() {
	go rm.run()
	utils.InfoLogger.Println("Reconciliation monitor started")
}

// Stop halts the summary goroutine.
func (rm *ReconciliationMonitor) Stop() {
	close(rm.stopChan)
}

func (rm *ReconciliationMonitor) run() {
	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.logSummary()
		case <-rm.stopChan:
			return
		}
	}
}

func (rm *ReconciliationMonitor) logSummary() {
	var unresolved int64
	if err := rm.db.Model(&models.ReconciliationAlert{}).
		Where("resolved = ?", false).
		Count(&unresolved).Error; err != nil {
		utils.ErrorLogger.Printf("Error counting unresolved alerts: %v", err)
		return
	}

	m := rm.GetMetrics()
	if unresolved > 0 {
		utils.ErrorLogger.Printf("ATTENTION: %d unresolved reconciliation alerts need operator review", unresolved)
	}
	utils.InfoLogger.Printf("Payment summary: approved=%d declined=%d conflicts=%d overpayments=%d notification_failures=%d",
		m.ApprovedCharges, m.DeclinedCharges, m.SettlementConflicts, m.OverpaymentsRejected, m.NotificationFailures)
}

// RecordApproved counts a successfully settled charge.
func (rm *ReconciliationMonitor) RecordApproved() {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.metrics.ApprovedCharges++
}

// RecordDeclined counts a processor decline.
func (rm *ReconciliationMonitor) RecordDeclined() {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.metrics.DeclinedCharges++
}

// RecordNotificationFailure counts a best-effort notification that failed.
func (rm *ReconciliationMonitor) RecordNotificationFailure() {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.metrics.NotificationFailures++
}

// RecordAlert persists an operator alert for a charge the ledger refused.
// The alert row is written outside any settlement transaction: it must
// survive even though the settlement itself rolled back.
func (rm *ReconciliationMonitor) RecordAlert(billID uint, chargeID string, amount float64, reason, detail string) {
	rm.mutex.Lock()
	switch reason {
	case models.AlertSettlementConflict:
		rm.metrics.SettlementConflicts++
	case models.AlertOverpayment:
		rm.metrics.OverpaymentsRejected++
	}
	rm.mutex.Unlock()

	alert := models.ReconciliationAlert{
		BillID:             billID,
		ProcessorPaymentID: chargeID,
		Amount:             amount,
		Reason:             reason,
		Detail:             detail,
		CreatedAt:          time.Now(),
	}
	if err := rm.db.Create(&alert).Error; err != nil {
		utils.ErrorLogger.Printf("Error persisting reconciliation alert for bill %d: %v", billID, err)
	}
}

// GetMetrics returns a snapshot of the current counters.
func (rm *ReconciliationMonitor) GetMetrics() ReconciliationMetrics {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	return rm.metrics
}

// UnresolvedAlerts returns the open operator follow-up queue.
func (rm *ReconciliationMonitor) UnresolvedAlerts() ([]models.ReconciliationAlert, error) {
	alerts := make([]models.ReconciliationAlert, 0)
	err := rm.db.Where("resolved = ?", false).
		Order("created_at ASC").
		Find(&alerts).Error
	return alerts, err
}
