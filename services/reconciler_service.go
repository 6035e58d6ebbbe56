package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/utils"
)

// SettlementResult reports what one reconciliation attempt did to the bill.
type SettlementResult struct {
	BillFullyPaid  bool
	AlreadySettled bool
	AmountApplied  float64
}

// ReconcilerService translates an approved charge into exactly one ledger
// state transition. All mutations happen inside a single transaction and
// every bill update is conditional on is_paid = false, so two concurrent
// settlements can never both win and no partial increment is lost.
type ReconcilerService struct {
	db      *gorm.DB
	monitor *ReconciliationMonitor
}

// NewReconcilerService creates a new ReconcilerService. monitor may be nil;
// conflict and overpayment alerts are then log-only.
func NewReconcilerService(db *gorm.DB, monitor *ReconciliationMonitor) *ReconcilerService {
	return &ReconcilerService{
		db:      db,
		monitor: monitor,
	}
}

// Settle applies an approved charge to a bill. It picks one of two
// transitions: full settlement (net amount covers the whole bill) inserting
// a Payment, or partial settlement incrementing paid_amount and inserting a
// BillShare. A charge id seen before is an idempotent replay and mutates
// nothing. A charge that no transition accepts is escalated: the processor
// has the money, the ledger must not be forced to fit.
func (s *ReconcilerService) Settle(billID uint, payerEmail string, charge *ChargeResult) (*SettlementResult, error) {
	if charge == nil {
		return nil, fmt.Errorf("refusing to settle a nil charge")
	}
	if !charge.Approved {
		return nil, &DeclinedError{Status: charge.Status, Detail: charge.StatusDetail}
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	// Replay check: the charge id is unique across payments and shares.
	settled, fullyPaid, err := s.alreadySettled(tx, billID, charge.ProcessorPaymentID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if settled {
		tx.Rollback()
		utils.InfoLogger.Printf("Charge %s already settled for bill %d, skipping", charge.ProcessorPaymentID, billID)
		return &SettlementResult{BillFullyPaid: fullyPaid, AlreadySettled: true}, nil
	}

	var bill models.Bill
	if err := tx.First(&bill, billID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to find bill %d: %w", billID, err)
	}

	if bill.IsPaid {
		tx.Rollback()
		s.alert(bill.ID, charge, models.AlertSettlementConflict, "bill already paid")
		return nil, ErrSettlementConflict
	}

	outstanding := bill.Outstanding()
	if charge.NetAmount > outstanding+utils.AmountTolerance {
		tx.Rollback()
		s.alert(bill.ID, charge, models.AlertOverpayment,
			fmt.Sprintf("charge %s exceeds outstanding %s", utils.FormatAmount(charge.NetAmount), utils.FormatAmount(outstanding)))
		return nil, ErrOverpaymentRejected
	}

	if utils.AmountsEqual(charge.NetAmount, bill.TotalAmount) && bill.PaidAmount < utils.AmountTolerance {
		return s.settleFull(tx, &bill, charge)
	}
	return s.settlePartial(tx, &bill, payerEmail, charge)
}

// settleFull marks the bill paid and records the one Payment row that
// transitions it. The update is guarded on is_paid = false and on no
// increment having landed since this settlement was decided: the read
// above may be a stale snapshot, so paid_amount = 0 is re-asserted in the
// WHERE and a concurrent partial can never be overwritten. Losing either
// race after the charge was captured is escalated to the operator queue.
func (s *ReconcilerService) settleFull(tx *gorm.DB, bill *models.Bill, charge *ChargeResult) (*SettlementResult, error) {
	res := tx.Model(&models.Bill{}).
		Where("id = ? AND is_paid = ? AND paid_amount <= ?", bill.ID, false, utils.AmountTolerance).
		Updates(map[string]interface{}{
			"is_paid":     true,
			"paid_amount": bill.TotalAmount,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update bill %d: %w", bill.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		// Re-read outside the failed transaction to tell the two causes apart.
		var fresh models.Bill
		if err := s.db.First(&fresh, bill.ID).Error; err == nil && !fresh.IsPaid {
			s.alert(bill.ID, charge, models.AlertOverpayment,
				fmt.Sprintf("full charge %s raced a partial, outstanding is %s",
					utils.FormatAmount(charge.NetAmount), utils.FormatAmount(fresh.Outstanding())))
			return nil, ErrOverpaymentRejected
		}
		s.alert(bill.ID, charge, models.AlertSettlementConflict, "concurrent full settlement won")
		return nil, ErrSettlementConflict
	}

	payment := models.Payment{
		BillID:             bill.ID,
		PaidAmount:         bill.TotalAmount,
		ProcessorPaymentID: charge.ProcessorPaymentID,
		DateApproved:       charge.DateApproved,
		CreatedAt:          time.Now(),
	}
	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		// A unique-index loss means another submission of this very charge
		// committed first; that is a replay, not a conflict.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.replayResult(bill.ID, charge.ProcessorPaymentID), nil
		}
		s.alert(bill.ID, charge, models.AlertSettlementConflict, "payment insert failed: "+err.Error())
		return nil, ErrSettlementConflict
	}

	if err := tx.Commit().Error; err != nil {
		s.alert(bill.ID, charge, models.AlertSettlementConflict, "commit failed: "+err.Error())
		return nil, ErrSettlementConflict
	}

	utils.InfoLogger.Printf("Bill %d fully settled by charge %s", bill.ID, charge.ProcessorPaymentID)
	return &SettlementResult{BillFullyPaid: true, AmountApplied: bill.TotalAmount}, nil
}

// settlePartial applies the store-enforced increment
// paid_amount = paid_amount + net, conditioned on is_paid = false and on the
// new total not exceeding total_amount. The arithmetic happens in the store,
// not here, so interleaved guests cannot lose an increment. If the shares
// now cover the total the bill is promoted to paid; the BillShare rows are
// the settlement record and no synthetic Payment is inserted.
func (s *ReconcilerService) settlePartial(tx *gorm.DB, bill *models.Bill, payerEmail string, charge *ChargeResult) (*SettlementResult, error) {
	res := tx.Model(&models.Bill{}).
		Where("id = ? AND is_paid = ? AND paid_amount + ? <= total_amount + ?",
			bill.ID, false, charge.NetAmount, utils.AmountTolerance).
		Updates(map[string]interface{}{
			"paid_amount": gorm.Expr("paid_amount + ?", charge.NetAmount),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update bill %d: %w", bill.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		// Re-read outside the failed transaction to tell the two causes apart.
		var fresh models.Bill
		if err := s.db.First(&fresh, bill.ID).Error; err == nil && !fresh.IsPaid {
			s.alert(bill.ID, charge, models.AlertOverpayment,
				fmt.Sprintf("concurrent payments left no room for %s", utils.FormatAmount(charge.NetAmount)))
			return nil, ErrOverpaymentRejected
		}
		s.alert(bill.ID, charge, models.AlertSettlementConflict, "bill paid while settling")
		return nil, ErrSettlementConflict
	}

	share := models.BillShare{
		BillID:             bill.ID,
		GuestEmail:         payerEmail,
		AmountPaid:         charge.NetAmount,
		Paid:               true,
		ProcessorPaymentID: charge.ProcessorPaymentID,
		CreatedAt:          time.Now(),
	}
	if err := tx.Create(&share).Error; err != nil {
		tx.Rollback()
		// Rolling back also reverts the increment, so the duplicate charge
		// ends up applied exactly once.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.replayResult(bill.ID, charge.ProcessorPaymentID), nil
		}
		s.alert(bill.ID, charge, models.AlertSettlementConflict, "bill share insert failed: "+err.Error())
		return nil, ErrSettlementConflict
	}

	// Promote to paid when the accumulated shares reach the total.
	promo := tx.Model(&models.Bill{}).
		Where("id = ? AND is_paid = ? AND paid_amount >= total_amount - ?",
			bill.ID, false, utils.AmountTolerance).
		Updates(map[string]interface{}{
			"is_paid":    true,
			"updated_at": time.Now(),
		})
	if promo.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to promote bill %d: %w", bill.ID, promo.Error)
	}

	if err := tx.Commit().Error; err != nil {
		s.alert(bill.ID, charge, models.AlertSettlementConflict, "commit failed: "+err.Error())
		return nil, ErrSettlementConflict
	}

	fullyPaid := promo.RowsAffected > 0
	if fullyPaid {
		utils.InfoLogger.Printf("Bill %d promoted to paid after partial charge %s", bill.ID, charge.ProcessorPaymentID)
	} else {
		utils.InfoLogger.Printf("Bill %d received partial charge %s of %s",
			bill.ID, charge.ProcessorPaymentID, utils.FormatAmount(charge.NetAmount))
	}
	return &SettlementResult{BillFullyPaid: fullyPaid, AmountApplied: charge.NetAmount}, nil
}

// replayResult builds the no-op result for a charge id that turned out to
// be settled already.
func (s *ReconcilerService) replayResult(billID uint, chargeID string) *SettlementResult {
	utils.InfoLogger.Printf("Charge %s already settled for bill %d, skipping", chargeID, billID)
	fullyPaid := false
	var bill models.Bill
	if err := s.db.First(&bill, billID).Error; err == nil {
		fullyPaid = bill.IsPaid
	}
	return &SettlementResult{BillFullyPaid: fullyPaid, AlreadySettled: true}
}

// alreadySettled reports whether this charge id was recorded before, and if
// so whether its bill is fully paid by now.
func (s *ReconcilerService) alreadySettled(tx *gorm.DB, billID uint, chargeID string) (bool, bool, error) {
	var count int64
	if err := tx.Model(&models.Payment{}).Where("processor_payment_id = ?", chargeID).Count(&count).Error; err != nil {
		return false, false, fmt.Errorf("failed to check payments for charge %s: %w", chargeID, err)
	}
	if count == 0 {
		if err := tx.Model(&models.BillShare{}).Where("processor_payment_id = ?", chargeID).Count(&count).Error; err != nil {
			return false, false, fmt.Errorf("failed to check bill shares for charge %s: %w", chargeID, err)
		}
	}
	if count == 0 {
		return false, false, nil
	}

	var bill models.Bill
	if err := tx.First(&bill, billID).Error; err != nil {
		return true, false, nil
	}
	return true, bill.IsPaid, nil
}

func (s *ReconcilerService) alert(billID uint, charge *ChargeResult, reason, detail string) {
	utils.ErrorLogger.Printf("Reconciliation failure on bill %d, charge %s: %s (%s)",
		billID, charge.ProcessorPaymentID, reason, detail)
	if s.monitor != nil {
		s.monitor.RecordAlert(billID, charge.ProcessorPaymentID, charge.NetAmount, reason, detail)
	}
}
