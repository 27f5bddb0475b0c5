package handlers

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CashFlowHandler handles income/expense and installment requests.
type CashFlowHandler struct {
	DB *gorm.DB
}

// NewCashFlowHandler creates a new CashFlowHandler.
func NewCashFlowHandler(db *gorm.DB) *CashFlowHandler {
	return &CashFlowHandler{DB: db}
}

// encodeRecurrence serializes a recurrence pattern for storage; a nil
// pattern maps to the empty string.
func encodeRecurrence(r *RecurrenceRequest) string {
	if r == nil {
		return ""
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(raw)
}

func isValidPaymentType(paymentType string) bool {
	for _, t := range models.ValidPaymentTypes {
		if t == paymentType {
			return true
		}
	}
	return false
}

// PeriodDataResponse groups the period report by direction.
type PeriodDataResponse struct {
	Incomes  []models.Transaction `json:"incomes"`
	Expenses []models.Transaction `json:"expenses"`
}

// GetPeriodData returns all incomes and expenses due inside a date range.
func (h *CashFlowHandler) GetPeriodData(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	startDate := c.Query("startDate")
	endDate := c.Query("endDate")
	if startDate == "" || endDate == "" {
		utils.BadRequest(c, "startDate and endDate are required")
		return
	}

	var incomes []models.Transaction
	if err := h.DB.Preload("Patient").
		Where("user_id = ? AND type = ? AND due_date BETWEEN ? AND ?",
			userID, models.TransactionIncome, startDate, endDate).
		Order("due_date asc").
		Find(&incomes).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch incomes: "+err.Error())
		return
	}

	var expenses []models.Transaction
	if err := h.DB.
		Where("user_id = ? AND type = ? AND due_date BETWEEN ? AND ?",
			userID, models.TransactionExpense, startDate, endDate).
		Order("due_date asc").
		Find(&expenses).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch expenses: "+err.Error())
		return
	}

	utils.Success(c, "Period data fetched successfully", PeriodDataResponse{
		Incomes:  incomes,
		Expenses: expenses,
	})
}

// InstallmentPlanRequest describes how an income splits into installments.
type InstallmentPlanRequest struct {
	Count        int       `json:"count" binding:"required,min=2"`
	FirstDate    time.Time `json:"firstDate" binding:"required"`
	Interval     int       `json:"interval" binding:"required,min=1"`
	IntervalType string    `json:"intervalType" binding:"required,oneof=daily weekly monthly"`
}

// CreateIncomeRequest represents the request body for creating an income.
type CreateIncomeRequest struct {
	Title        string                  `json:"title" binding:"required"`
	Description  string                  `json:"description"`
	Amount       float64                 `json:"amount" binding:"required,gt=0"`
	DueDate      time.Time               `json:"dueDate" binding:"required"`
	PatientID    *string                 `json:"patientId"`
	PaymentType  string                  `json:"paymentType" binding:"required"`
	Installments *InstallmentPlanRequest `json:"installments"`
}

// CreateIncome creates an income, optionally split into an installment plan.
// The total amount is divided evenly with any rounding remainder folded into
// the first installment; the parent transaction keeps Amount = 0 so the plan
// is the source of truth.
func (h *CashFlowHandler) CreateIncome(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateIncomeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if !isValidPaymentType(req.PaymentType) {
		utils.BadRequest(c, "Invalid payment type")
		return
	}

	if req.PatientID != nil {
		var patient models.Patient
		if err := h.DB.Where("id = ? AND user_id = ?", *req.PatientID, userID).First(&patient).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.NotFound(c, "Patient not found")
			} else {
				utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
			}
			return
		}
	}

	transaction := models.Transaction{
		UserID:      userID,
		PatientID:   req.PatientID,
		Type:        models.TransactionIncome,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     &req.DueDate,
		PaymentType: req.PaymentType,
		IsPaid:      false,
	}

	if req.Installments == nil {
		if err := h.DB.Create(&transaction).Error; err != nil {
			utils.InternalServerError(c, "Failed to create income: "+err.Error())
			return
		}
		utils.Created(c, "Income created successfully", transaction)
		return
	}

	plan := req.Installments
	transaction.Amount = 0
	transaction.DueDate = &plan.FirstDate

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}

		perInstallment := math.Floor(req.Amount/float64(plan.Count)*100) / 100
		remainder := req.Amount - perInstallment*float64(plan.Count)

		installments := make([]models.Installment, 0, plan.Count)
		dueDate := plan.FirstDate
		for i := 1; i <= plan.Count; i++ {
			amount := perInstallment
			if i == 1 {
				amount = math.Round((perInstallment+remainder)*100) / 100
			}
			installments = append(installments, models.Installment{
				TransactionID:     transaction.ID,
				InstallmentNumber: i,
				Amount:            amount,
				DueDate:           dueDate,
				IsPaid:            false,
			})
			switch plan.IntervalType {
			case "daily":
				dueDate = dueDate.AddDate(0, 0, plan.Interval)
			case "weekly":
				dueDate = dueDate.AddDate(0, 0, 7*plan.Interval)
			case "monthly":
				dueDate = dueDate.AddDate(0, plan.Interval, 0)
			}
		}
		return tx.Create(&installments).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to create income: "+err.Error())
		return
	}

	utils.Created(c, "Income created successfully", transaction)
}

// RecurrenceRequest describes a repeating expense.
type RecurrenceRequest struct {
	Frequency string     `json:"frequency" binding:"required,oneof=daily weekly monthly yearly"`
	Interval  int        `json:"interval" binding:"required,min=1"`
	EndDate   *time.Time `json:"endDate"`
}

// CreateExpenseRequest represents the request body for creating an expense.
type CreateExpenseRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	Amount      float64            `json:"amount" binding:"required,gt=0"`
	DueDate     time.Time          `json:"dueDate" binding:"required"`
	PaymentType string             `json:"paymentType" binding:"required"`
	Recurrence  *RecurrenceRequest `json:"recurrence"`
}

// CreateExpense creates an expense, optionally with a recurrence pattern.
func (h *CashFlowHandler) CreateExpense(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateExpenseRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if !isValidPaymentType(req.PaymentType) {
		utils.BadRequest(c, "Invalid payment type")
		return
	}

	transaction := models.Transaction{
		UserID:      userID,
		Type:        models.TransactionExpense,
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     &req.DueDate,
		PaymentType: req.PaymentType,
		Recurrence:  encodeRecurrence(req.Recurrence),
		IsPaid:      false,
	}

	if err := h.DB.Create(&transaction).Error; err != nil {
		utils.InternalServerError(c, "Failed to create expense: "+err.Error())
		return
	}

	utils.Created(c, "Expense created successfully", transaction)
}

// ReceivableEntry is one open item in the receivables report, either an
// unpaid installment or an unpaid simple income.
type ReceivableEntry struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	DueDate       time.Time `json:"dueDate"`
	Title         string    `json:"title"`
	PatientName   string    `json:"patientName,omitempty"`
	Amount        float64   `json:"amount"`
	Installment   struct {
		Current int `json:"current"`
		Total   int `json:"total"`
	} `json:"installment"`
}

// GetReceivables lists open installments and unpaid simple incomes ordered
// by due date.
func (h *CashFlowHandler) GetReceivables(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var installments []models.Installment
	if err := h.DB.Preload("Transaction").Preload("Transaction.Patient").
		Joins("JOIN transactions ON transactions.id = installments.transaction_id").
		Where("transactions.user_id = ? AND transactions.type = ? AND installments.is_paid = ?",
			userID, models.TransactionIncome, false).
		Order("installments.due_date asc").
		Find(&installments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch installments: "+err.Error())
		return
	}

	// Unpaid simple incomes: no installment plan attached
	var simpleIncomes []models.Transaction
	if err := h.DB.Preload("Patient").
		Where("user_id = ? AND type = ? AND is_paid = ?", userID, models.TransactionIncome, false).
		Where("NOT EXISTS (SELECT 1 FROM installments WHERE installments.transaction_id = transactions.id)").
		Order("due_date asc").
		Find(&simpleIncomes).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch incomes: "+err.Error())
		return
	}

	totals := map[string]int64{}
	for _, inst := range installments {
		if _, ok := totals[inst.TransactionID]; ok {
			continue
		}
		var total int64
		if err := h.DB.Model(&models.Installment{}).
			Where("transaction_id = ?", inst.TransactionID).
			Count(&total).Error; err != nil {
			utils.InternalServerError(c, "Failed to count installments: "+err.Error())
			return
		}
		totals[inst.TransactionID] = total
	}

	receivables := make([]ReceivableEntry, 0, len(installments)+len(simpleIncomes))
	for _, inst := range installments {
		entry := ReceivableEntry{
			ID:            inst.ID,
			TransactionID: inst.TransactionID,
			DueDate:       inst.DueDate,
			Title:         inst.Transaction.Title,
			Amount:        inst.Amount,
		}
		if inst.Transaction.Patient != nil {
			entry.PatientName = inst.Transaction.Patient.FullName
		}
		entry.Installment.Current = inst.InstallmentNumber
		entry.Installment.Total = int(totals[inst.TransactionID])
		receivables = append(receivables, entry)
	}
	for _, income := range simpleIncomes {
		entry := ReceivableEntry{
			ID:            "transaction_" + income.ID,
			TransactionID: income.ID,
			Title:         income.Title,
			Amount:        income.Amount,
		}
		if income.DueDate != nil {
			entry.DueDate = *income.DueDate
		}
		if income.Patient != nil {
			entry.PatientName = income.Patient.FullName
		}
		entry.Installment.Current = 1
		entry.Installment.Total = 1
		receivables = append(receivables, entry)
	}

	sort.Slice(receivables, func(i, j int) bool {
		return receivables[i].DueDate.Before(receivables[j].DueDate)
	})

	utils.Success(c, "Receivables fetched successfully", receivables)
}

// MarkInstallmentAsPaid marks one receivable as paid. The ID is either an
// installment ID or "transaction_<id>" for a simple income. Paying the last
// open installment also settles the parent transaction.
func (h *CashFlowHandler) MarkInstallmentAsPaid(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	id := c.Param("id")
	now := time.Now()

	if strings.HasPrefix(id, "transaction_") {
		transactionID := strings.TrimPrefix(id, "transaction_")

		var transaction models.Transaction
		if err := h.DB.Where("id = ? AND user_id = ? AND type = ?",
			transactionID, userID, models.TransactionIncome).First(&transaction).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.NotFound(c, "Income not found")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			return
		}

		var count int64
		if err := h.DB.Model(&models.Installment{}).
			Where("transaction_id = ?", transactionID).Count(&count).Error; err != nil {
			utils.InternalServerError(c, "Database error: "+err.Error())
			return
		}
		if count > 0 {
			utils.BadRequest(c, "This income has installments; pay them individually")
			return
		}

		transaction.IsPaid = true
		transaction.PaymentDate = &now
		if err := h.DB.Save(&transaction).Error; err != nil {
			utils.InternalServerError(c, "Failed to mark income as paid: "+err.Error())
			return
		}

		utils.Success(c, "Income marked as paid", nil)
		return
	}

	var installment models.Installment
	if err := h.DB.
		Joins("JOIN transactions ON transactions.id = installments.transaction_id").
		Where("installments.id = ? AND transactions.user_id = ?", id, userID).
		First(&installment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Installment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		installment.IsPaid = true
		installment.PaymentDate = &now
		if err := tx.Save(&installment).Error; err != nil {
			return err
		}

		var unpaid int64
		if err := tx.Model(&models.Installment{}).
			Where("transaction_id = ? AND is_paid = ?", installment.TransactionID, false).
			Count(&unpaid).Error; err != nil {
			return err
		}
		if unpaid == 0 {
			return tx.Model(&models.Transaction{}).
				Where("id = ?", installment.TransactionID).
				Updates(map[string]interface{}{"is_paid": true, "payment_date": now}).Error
		}
		return nil
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to mark installment as paid: "+err.Error())
		return
	}

	utils.Success(c, "Installment marked as paid", nil)
}

// UpdateIncomeRequest represents the request body for updating an income.
type UpdateIncomeRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount" binding:"required,gt=0"`
	DueDate     time.Time `json:"dueDate" binding:"required"`
	PatientID   *string   `json:"patientId"`
	PaymentType string    `json:"paymentType" binding:"required"`
}

// UpdateIncome updates a simple (non-installment) income.
func (h *CashFlowHandler) UpdateIncome(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var transaction models.Transaction
	if err := h.DB.Where("id = ? AND user_id = ? AND type = ?",
		c.Param("id"), userID, models.TransactionIncome).First(&transaction).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Income not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var count int64
	if err := h.DB.Model(&models.Installment{}).
		Where("transaction_id = ?", transaction.ID).Count(&count).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if count > 0 {
		utils.BadRequest(c, "Installment incomes cannot be edited through this endpoint")
		return
	}

	var req UpdateIncomeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if !isValidPaymentType(req.PaymentType) {
		utils.BadRequest(c, "Invalid payment type")
		return
	}

	if req.PatientID != nil {
		var patient models.Patient
		if err := h.DB.Where("id = ? AND user_id = ?", *req.PatientID, userID).First(&patient).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.NotFound(c, "Patient not found")
			} else {
				utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
			}
			return
		}
	}

	transaction.Title = req.Title
	transaction.Description = req.Description
	transaction.Amount = req.Amount
	transaction.DueDate = &req.DueDate
	transaction.PatientID = req.PatientID
	transaction.PaymentType = req.PaymentType

	if err := h.DB.Save(&transaction).Error; err != nil {
		utils.InternalServerError(c, "Failed to update income: "+err.Error())
		return
	}

	utils.Success(c, "Income updated successfully", transaction)
}

// DeleteIncome removes an income and any installment plan under it.
func (h *CashFlowHandler) DeleteIncome(c *gin.Context) {
	h.deleteTransaction(c, models.TransactionIncome)
}

// UpdateExpenseRequest represents the request body for updating an expense.
type UpdateExpenseRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	Amount      float64            `json:"amount" binding:"required,gt=0"`
	DueDate     time.Time          `json:"dueDate" binding:"required"`
	PaymentType string             `json:"paymentType" binding:"required"`
	Recurrence  *RecurrenceRequest `json:"recurrence"`
}

// UpdateExpense updates an expense.
func (h *CashFlowHandler) UpdateExpense(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var transaction models.Transaction
	if err := h.DB.Where("id = ? AND user_id = ? AND type = ?",
		c.Param("id"), userID, models.TransactionExpense).First(&transaction).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Expense not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req UpdateExpenseRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if !isValidPaymentType(req.PaymentType) {
		utils.BadRequest(c, "Invalid payment type")
		return
	}

	transaction.Title = req.Title
	transaction.Description = req.Description
	transaction.Amount = req.Amount
	transaction.DueDate = &req.DueDate
	transaction.PaymentType = req.PaymentType
	transaction.Recurrence = encodeRecurrence(req.Recurrence)

	if err := h.DB.Save(&transaction).Error; err != nil {
		utils.InternalServerError(c, "Failed to update expense: "+err.Error())
		return
	}

	utils.Success(c, "Expense updated successfully", transaction)
}

// DeleteExpense removes an expense.
func (h *CashFlowHandler) DeleteExpense(c *gin.Context) {
	h.deleteTransaction(c, models.TransactionExpense)
}

// TogglePaidStatus flips the paid flag of a simple transaction; installment
// incomes must be settled per installment.
func (h *CashFlowHandler) TogglePaidStatus(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	txType := c.Query("type")
	if txType != string(models.TransactionIncome) && txType != string(models.TransactionExpense) {
		utils.BadRequest(c, "type must be 'income' or 'expense'")
		return
	}

	var transaction models.Transaction
	if err := h.DB.Where("id = ? AND user_id = ? AND type = ?",
		c.Param("id"), userID, txType).First(&transaction).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Transaction not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var count int64
	if err := h.DB.Model(&models.Installment{}).
		Where("transaction_id = ?", transaction.ID).Count(&count).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if count > 0 {
		utils.BadRequest(c, "Installment incomes cannot have their status toggled through this endpoint")
		return
	}

	transaction.IsPaid = !transaction.IsPaid
	if transaction.IsPaid {
		now := time.Now()
		transaction.PaymentDate = &now
	} else {
		transaction.PaymentDate = nil
	}

	if err := h.DB.Save(&transaction).Error; err != nil {
		utils.InternalServerError(c, "Failed to toggle paid status: "+err.Error())
		return
	}

	utils.Success(c, "Paid status updated", gin.H{"isPaid": transaction.IsPaid})
}

func (h *CashFlowHandler) deleteTransaction(c *gin.Context, txType models.TransactionType) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var transaction models.Transaction
	if err := h.DB.Where("id = ? AND user_id = ? AND type = ?",
		c.Param("id"), userID, txType).First(&transaction).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Transaction not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transaction_id = ?", transaction.ID).
			Delete(&models.Installment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&transaction).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete transaction: "+err.Error())
		return
	}

	utils.Success(c, "Transaction deleted successfully", nil)
}
