package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/advance-portal/internal/middleware"
	"github.com/sjperalta/advance-portal/internal/models"
	"github.com/sjperalta/advance-portal/internal/services"
)

type action struct {
	mutates   bool
	adminOnly bool
	handle    gin.HandlerFunc
}

// APIHandler serves the single action-dispatched endpoint used by the dashboard
type APIHandler struct {
	svcs    *services.Services
	actions map[string]action
}

func NewAPIHandler(svcs *services.Services) *APIHandler {
	h := &APIHandler{svcs: svcs}
	h.actions = map[string]action{
		"get_employees":        {handle: h.getEmployees},
		"get_borrowers":        {handle: h.getBorrowers},
		"get_borrower_history": {handle: h.getBorrowerHistory},
		"get_vouchers":         {handle: h.getVouchers},
		"get_dashboard_stats":  {handle: h.getDashboardStats},
		"get_current_user":     {handle: h.getCurrentUser},
		"get_audit_logs":       {adminOnly: true, handle: h.getAuditLogs},

		"add_employee":    {mutates: true, handle: h.addEmployee},
		"update_employee": {mutates: true, handle: h.updateEmployee},
		"delete_employee": {mutates: true, handle: h.deleteEmployee},
		"add_borrower":    {mutates: true, handle: h.addBorrower},
		"update_borrower": {mutates: true, handle: h.updateBorrower},
		"delete_borrower": {mutates: true, handle: h.deleteBorrower},
		"add_voucher":     {mutates: true, handle: h.addVoucher},
		"update_voucher":  {mutates: true, handle: h.updateVoucher},
		"delete_voucher":  {mutates: true, handle: h.deleteVoucher},

		"import_employees": {mutates: true, handle: h.importEmployees},
		"import_borrowers": {mutates: true, handle: h.importBorrowers},
		"import_vouchers":  {mutates: true, handle: h.importVouchers},

		"update_email":    {mutates: true, handle: h.updateEmail},
		"change_password": {mutates: true, handle: h.changePassword},
	}
	return h
}

// @Summary Dashboard API
// @Description Dispatches on the action query parameter. Mutating actions require POST.
// @Tags API
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param action query string true "Action name"
// @Success 200 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 401 {object} Envelope
// @Failure 405 {object} Envelope
// @Router /api [post]
func (h *APIHandler) Dispatch(c *gin.Context) {
	act, ok := h.actions[c.Query("action")]
	if !ok {
		respondFail(c, http.StatusBadRequest, "Invalid action")
		return
	}
	if act.mutates && c.Request.Method != http.MethodPost {
		respondFail(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if act.adminOnly {
		middleware.RequireAdmin()(c)
		if c.IsAborted() {
			return
		}
	}
	act.handle(c)
}

// bind decodes a form or JSON request into req, writing the failure envelope
// when it does not validate
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBind(req); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func (h *APIHandler) getEmployees(c *gin.Context) {
	employees, err := h.svcs.Employee.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]models.EmployeeResponse, 0, len(employees))
	for i := range employees {
		data = append(data, employees[i].ToResponse())
	}
	respondOK(c, "Employees loaded successfully", data)
}

func (h *APIHandler) getBorrowers(c *gin.Context) {
	borrowers, err := h.svcs.Ledger.ListBorrowers(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]models.BorrowerResponse, 0, len(borrowers))
	for i := range borrowers {
		data = append(data, borrowers[i].ToResponse())
	}
	respondOK(c, "Borrowers loaded successfully", data)
}

func (h *APIHandler) getBorrowerHistory(c *gin.Context) {
	history, err := h.svcs.Ledger.BorrowerHistory(c.Request.Context(), c.Query("empId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Borrower history loaded successfully", history)
}

func (h *APIHandler) getVouchers(c *gin.Context) {
	vouchers, err := h.svcs.Ledger.ListVouchers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]models.VoucherResponse, 0, len(vouchers))
	for i := range vouchers {
		data = append(data, vouchers[i].ToResponse())
	}
	respondOK(c, "Vouchers loaded successfully", data)
}

func (h *APIHandler) getDashboardStats(c *gin.Context) {
	stats, err := h.svcs.Ledger.DashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Stats loaded successfully", stats)
}

func (h *APIHandler) getCurrentUser(c *gin.Context) {
	user, err := h.svcs.Auth.CurrentUser(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "User loaded successfully", user.ToResponse())
}

func (h *APIHandler) getAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	logs, total, err := h.svcs.Audit.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Audit logs loaded successfully", gin.H{"logs": logs, "total": total})
}

func (h *APIHandler) addEmployee(c *gin.Context) {
	var req EmployeeRequest
	if !bind(c, &req) {
		return
	}

	employee, err := h.svcs.Employee.Create(c.Request.Context(), middleware.GetActor(c), req.ID.String(), req.Name.String())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Employee added successfully", employee.ToResponse())
}

func (h *APIHandler) updateEmployee(c *gin.Context) {
	var req EmployeeRequest
	if !bind(c, &req) {
		return
	}

	if err := h.svcs.Employee.Rename(c.Request.Context(), middleware.GetActor(c), req.ID.String(), req.Name.String()); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Employee updated successfully", nil)
}

func (h *APIHandler) deleteEmployee(c *gin.Context) {
	var req EmployeeIDRequest
	if !bind(c, &req) {
		return
	}

	if err := h.svcs.Employee.Deactivate(c.Request.Context(), middleware.GetActor(c), req.ID.String()); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Employee deleted successfully", nil)
}

func (h *APIHandler) addBorrower(c *gin.Context) {
	var req BorrowerRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.svcs.Ledger.CreateBorrower(c.Request.Context(), middleware.GetActor(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Borrower added successfully", result)
}

func (h *APIHandler) updateBorrower(c *gin.Context) {
	var req BorrowerRequest
	if !bind(c, &req) {
		return
	}

	borrower, err := h.svcs.Ledger.EditBorrower(c.Request.Context(), middleware.GetActor(c), req.ref(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Borrower updated successfully", borrower.ToResponse())
}

func (h *APIHandler) deleteBorrower(c *gin.Context) {
	var req BorrowerRefRequest
	if !bind(c, &req) {
		return
	}

	if err := h.svcs.Ledger.DeleteBorrower(c.Request.Context(), middleware.GetActor(c), req.ref()); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Borrower deleted successfully", nil)
}

func (h *APIHandler) addVoucher(c *gin.Context) {
	var req VoucherRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.svcs.Ledger.CreateVoucher(c.Request.Context(), middleware.GetActor(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Voucher added successfully", result)
}

func (h *APIHandler) updateVoucher(c *gin.Context) {
	var req VoucherRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.svcs.Ledger.EditVoucher(c.Request.Context(), middleware.GetActor(c), req.autoID(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Voucher updated successfully", result)
}

func (h *APIHandler) deleteVoucher(c *gin.Context) {
	var req VoucherIDRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.svcs.Ledger.DeleteVoucher(c.Request.Context(), middleware.GetActor(c), req.autoID())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Voucher deleted successfully", result)
}

func bindRows(c *gin.Context, rows interface{}, entity string) bool {
	if err := BindNestedOrFlat(c, rows, entity, "rows"); err != nil {
		respondError(c, &services.Error{Kind: services.ErrValidation, Message: "Invalid JSON data", Err: err})
		return false
	}
	return true
}

func (h *APIHandler) importEmployees(c *gin.Context) {
	var rows []services.EmployeeRow
	if !bindRows(c, &rows, "employees") {
		return
	}

	result, err := h.svcs.Import.ImportEmployees(c.Request.Context(), middleware.GetActor(c), rows)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result.Summary("employees"), result)
}

func (h *APIHandler) importBorrowers(c *gin.Context) {
	var rows []services.BorrowerRow
	if !bindRows(c, &rows, "borrowers") {
		return
	}

	result, err := h.svcs.Import.ImportBorrowers(c.Request.Context(), middleware.GetActor(c), rows)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result.Summary("borrowers"), result)
}

func (h *APIHandler) importVouchers(c *gin.Context) {
	var rows []services.VoucherRow
	if !bindRows(c, &rows, "vouchers") {
		return
	}

	result, err := h.svcs.Import.ImportVouchers(c.Request.Context(), middleware.GetActor(c), rows)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result.Summary("vouchers"), result)
}

func (h *APIHandler) updateEmail(c *gin.Context) {
	var req UpdateEmailRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.svcs.Auth.UpdateEmail(c.Request.Context(), middleware.GetActor(c), req.NewEmail, req.CurrentPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Email updated successfully", user.ToResponse())
}

func (h *APIHandler) changePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bind(c, &req) {
		return
	}

	err := h.svcs.Auth.ChangePassword(c.Request.Context(), middleware.GetActor(c), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Password changed successfully", nil)
}
