package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/utils"
)

// ApplySchemaExtras adds what AutoMigrate does not cover and verifies the
// constraints the reconciler depends on. The unique charge-id indexes back
// the replay check at the store level: even two processes racing on the
// same charge cannot both insert a row for it.
func ApplySchemaExtras(db *gorm.DB) error {
	if !db.Migrator().HasIndex(&models.Bill{}, "idx_bills_open") {
		if err := db.Exec(`CREATE INDEX idx_bills_open ON bills (is_paid, table_id)`).Error; err != nil {
			utils.ErrorLogger.Printf("Error creating idx_bills_open: %v", err)
			return err
		}
	}

	// The unique indexes come from the model tags; refuse to start without
	// them, the idempotency guarantee rests on the store enforcing it.
	if !db.Migrator().HasIndex(&models.Payment{}, "ProcessorPaymentID") {
		return fmt.Errorf("missing unique index on payments.processor_payment_id")
	}
	if !db.Migrator().HasIndex(&models.BillShare{}, "ProcessorPaymentID") {
		return fmt.Errorf("missing unique index on bill_shares.processor_payment_id")
	}

	utils.InfoLogger.Println("Schema extras applied and constraints verified")
	return nil
}
