package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/events"
	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/utils"
)

// BillMonitor is a polling safety net for bills whose shares already cover
// the total but whose is_paid flag is still false (rows written before the
// promotion policy, or a crash between increment and promotion). It
// promotes them and notifies viewers.
type BillMonitor struct {
	DB       *gorm.DB
	StopChan chan struct{}
	Interval time.Duration
	notifier *NotifierService
}

func NewBillMonitor(db *gorm.DB, notifier *NotifierService) *BillMonitor {
	return &BillMonitor{
		DB:       db,
		StopChan: make(chan struct{}),
		Interval: 30 * time.Second,
		notifier: notifier,
	}
}

func (bm *BillMonitor) Start() {
	go func() {
		ticker := time.NewTicker(bm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				bm.checkStuckBills()
			case <-bm.StopChan:
				return
			}
		}
	}()
	utils.InfoLogger.Println("Bill monitor started")
}

func (bm *BillMonitor) Stop() {
	close(bm.StopChan)
}

func (bm *BillMonitor) checkStuckBills() {
	var bills []models.Bill
	if err := bm.DB.
		Where("is_paid = ? AND paid_amount >= total_amount - ?", false, utils.AmountTolerance).
		Limit(100).
		Find(&bills).Error; err != nil {
		utils.ErrorLogger.Printf("Error fetching stuck bills: %v", err)
		return
	}

	for _, bill := range bills {
		res := bm.DB.Model(&models.Bill{}).
			Where("id = ? AND is_paid = ?", bill.ID, false).
			Updates(map[string]interface{}{
				"is_paid":    true,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			utils.ErrorLogger.Printf("Error promoting bill %d: %v", bill.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			// Someone else promoted it in the meantime.
			continue
		}

		utils.InfoLogger.Printf("Bill %d promoted to paid by monitor (paid %s of %s)",
			bill.ID, utils.FormatAmount(bill.PaidAmount), utils.FormatAmount(bill.TotalAmount))

		if bm.notifier != nil {
			bm.notifier.AfterFullSettlement(bill.TableID, bill.ID, bill.PaidAmount)
		} else {
			events.BroadcastPaymentEvent(bill.TableID, events.PaymentEvent{
				Status:        "success",
				Amount:        bill.PaidAmount,
				BillID:        bill.ID,
				BillFullyPaid: true,
			})
		}
	}
}
