package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pay/models"
	"github.com/yeremiapane/restaurant-pay/services"
	"github.com/yeremiapane/restaurant-pay/utils"
)

type BillController struct {
	DB      *gorm.DB
	Monitor *services.ReconciliationMonitor
}

func NewBillController(db *gorm.DB, monitor *services.ReconciliationMonitor) *BillController {
	return &BillController{DB: db, Monitor: monitor}
}

// CreateBill -> opens a tab for a table
func (bc *BillController) CreateBill(c *gin.Context) {
	type reqBody struct {
		TableID     uint    `json:"table_id" binding:"required"`
		TotalAmount float64 `json:"total_amount" binding:"required"`
	}

	var body reqBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if body.TotalAmount <= 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("total_amount must be greater than zero"))
		return
	}

	var table models.Table
	if err := bc.DB.First(&table, body.TableID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("table not found"))
		return
	}

	// One open bill per table at a time.
	var open int64
	if err := bc.DB.Model(&models.Bill{}).
		Where("table_id = ? AND is_paid = ?", body.TableID, false).
		Count(&open).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if open > 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("table already has an open bill"))
		return
	}

	bill := models.Bill{
		TableID:     body.TableID,
		TotalAmount: utils.Round2(body.TotalAmount),
		PaidAmount:  0,
		IsPaid:      false,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := bc.DB.Create(&bill).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Bill created", bill)
}

// GetBillByID -> bill with its payments and shares
func (bc *BillController) GetBillByID(c *gin.Context) {
	var bill models.Bill
	if err := bc.DB.
		Preload("Payments").
		Preload("BillShares").
		First(&bill, c.Param("bill_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("bill not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Bill detail", bill)
}

// GetAlerts -> unresolved reconciliation alerts for operator follow-up
func (bc *BillController) GetAlerts(c *gin.Context) {
	alerts, err := bc.Monitor.UnresolvedAlerts()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Unresolved reconciliation alerts", alerts)
}
