package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-pay/models"
)

func TestCheckStuckBills_PromotesCoveredBill(t *testing.T) {
	db := setupReconcilerDB(t)
	bill := seedBill(t, db, 100.00)

	// Shares cover the total but the flag is stale, as after a crash
	// between increment and promotion.
	assert.NoError(t, db.Model(&models.Bill{}).
		Where("id = ?", bill.ID).
		Update("paid_amount", 100.00).Error)

	bm := NewBillMonitor(db, nil)
	bm.checkStuckBills()

	var updated models.Bill
	assert.NoError(t, db.First(&updated, bill.ID).Error)
	assert.True(t, updated.IsPaid)
	assert.Equal(t, 100.00, updated.PaidAmount)
}

func TestCheckStuckBills_LeavesOpenAndPaidBillsAlone(t *testing.T) {
	db := setupReconcilerDB(t)
	open := seedBill(t, db, 100.00)
	assert.NoError(t, db.Model(&models.Bill{}).
		Where("id = ?", open.ID).
		Update("paid_amount", 60.00).Error)

	paidAt := time.Now().Add(-time.Hour)
	paid := models.Bill{TableID: open.TableID, TotalAmount: 50.00, PaidAmount: 50.00, IsPaid: true,
		CreatedAt: paidAt, UpdatedAt: paidAt}
	assert.NoError(t, db.Create(&paid).Error)

	bm := NewBillMonitor(db, nil)
	bm.checkStuckBills()

	var stillOpen models.Bill
	assert.NoError(t, db.First(&stillOpen, open.ID).Error)
	assert.False(t, stillOpen.IsPaid, "a bill below its total must not be promoted")

	// A second sweep after the promotion already happened is a no-op.
	var first models.Bill
	assert.NoError(t, db.First(&first, paid.ID).Error)
	bm.checkStuckBills()
	var second models.Bill
	assert.NoError(t, db.First(&second, paid.ID).Error)
	assert.True(t, second.UpdatedAt.Equal(first.UpdatedAt), "an already-paid bill must not be touched")
}
