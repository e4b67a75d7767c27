package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sjperalta/advance-portal/internal/services"
	"github.com/sjperalta/advance-portal/pkg/datefmt"
)

// Request structs accept both form posts and JSON bodies. services.Cell lets
// a JSON client send numbers either as numbers or as strings.

type EmployeeRequest struct {
	ID   services.Cell `json:"id" form:"id" binding:"required"`
	Name services.Cell `json:"name" form:"name" binding:"required"`
}

type EmployeeIDRequest struct {
	ID services.Cell `json:"id" form:"id" binding:"required"`
}

type BorrowerRequest struct {
	ID            services.Cell `json:"id" form:"id" binding:"omitempty,wholenum"`
	ApplicationNo services.Cell `json:"applicationNo" form:"applicationNo"`
	EmpID         services.Cell `json:"empId" form:"empId" binding:"required"`
	Name          services.Cell `json:"name" form:"name" binding:"required"`
	Amount        services.Cell `json:"amount" form:"amount" binding:"required,amount"`
	Emi           services.Cell `json:"emi" form:"emi" binding:"required,amount"`
	Month         services.Cell `json:"month" form:"month" binding:"required,wholenum"`
	DisbursedDate services.Cell `json:"disbursedDate" form:"disbursedDate" binding:"required,date"`
}

type BorrowerRefRequest struct {
	ID            services.Cell `json:"id" form:"id" binding:"omitempty,wholenum"`
	ApplicationNo services.Cell `json:"applicationNo" form:"applicationNo"`
}

type VoucherRequest struct {
	AutoID        services.Cell `json:"autoId" form:"autoId" binding:"omitempty,wholenum"`
	ID            services.Cell `json:"id" form:"id"`
	EmpID         services.Cell `json:"empId" form:"empId" binding:"required"`
	EmpName       services.Cell `json:"empName" form:"empName" binding:"required"`
	ApplicationNo services.Cell `json:"applicationNo" form:"applicationNo"`
	Date          services.Cell `json:"date" form:"date" binding:"required,date"`
	Amount        services.Cell `json:"amount" form:"amount" binding:"required,amount"`
	Month         services.Cell `json:"month" form:"month" binding:"required"`
}

type VoucherIDRequest struct {
	AutoID services.Cell `json:"autoId" form:"autoId" binding:"required,wholenum"`
}

type UpdateEmailRequest struct {
	NewEmail        string `json:"newEmail" form:"newEmail" binding:"required"`
	CurrentPassword string `json:"currentPassword" form:"currentPassword" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" form:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r BorrowerRequest) ref() services.BorrowerRef {
	return BorrowerRefRequest{ID: r.ID, ApplicationNo: r.ApplicationNo}.ref()
}

func (r BorrowerRefRequest) ref() services.BorrowerRef {
	id, _ := r.ID.Int()
	return services.BorrowerRef{ID: uint(id), ApplicationNo: r.ApplicationNo.String()}
}

func (r BorrowerRequest) input() services.BorrowerInput {
	in := services.BorrowerInput{
		ApplicationNo: r.ApplicationNo.String(),
		EmpID:         r.EmpID.String(),
		Name:          r.Name.String(),
	}
	// The binding tags have already checked these parse.
	in.Amount, _ = r.Amount.Decimal()
	in.Emi, _ = r.Emi.Decimal()
	in.Months, _ = r.Month.Int()
	in.DisbursedDate, _ = r.DisbursedDate.Date()
	return in
}

func (r VoucherRequest) autoID() uint {
	id, _ := r.AutoID.Int()
	return uint(id)
}

func (r VoucherRequest) input() services.VoucherInput {
	in := services.VoucherInput{
		Number:        r.ID.String(),
		EmpID:         r.EmpID.String(),
		EmpName:       r.EmpName.String(),
		ApplicationNo: r.ApplicationNo.String(),
		Month:         r.Month.String(),
	}
	in.Amount, _ = r.Amount.Decimal()
	in.VoucherDate, _ = r.Date.Date()
	return in
}

func (r VoucherIDRequest) autoID() uint {
	id, _ := r.AutoID.Int()
	return uint(id)
}

var fieldLabels = map[string]string{
	"id":              "ID",
	"autoId":          "Voucher ID",
	"empId":           "Employee ID",
	"empName":         "Employee name",
	"name":            "Name",
	"amount":          "Amount",
	"emi":             "EMI",
	"month":           "Month",
	"disbursedDate":   "Disbursed date",
	"date":            "Date",
	"newEmail":        "New email",
	"currentPassword": "Current password",
	"newPassword":     "New password",
	"confirmPassword": "Password confirmation",
}

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags to gin's validator
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			return datefmt.Valid(fl.Field().String())
		})
		_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
			_, err := services.Cell(fl.Field().String()).Decimal()
			return err == nil
		})
		_ = v.RegisterValidation("wholenum", func(fl validator.FieldLevel) bool {
			n, err := services.Cell(fl.Field().String()).Int()
			return err == nil && n >= 0
		})
	})
}

// bindError turns a binding failure into a validation error naming the
// first offending field
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &services.Error{Kind: services.ErrValidation, Message: "Invalid request payload", Err: err}
	}

	fe := fieldErrs[0]
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = label + " is required"
	case "date":
		msg = fmt.Sprintf("Invalid %s %q. Use DD-MM-YYYY", strings.ToLower(label), fe.Value())
	case "amount":
		msg = fmt.Sprintf("%s must be a number", label)
	case "wholenum":
		msg = fmt.Sprintf("%s must be a whole number", label)
	default:
		msg = fmt.Sprintf("%s is invalid", label)
	}
	return &services.Error{Kind: services.ErrValidation, Message: msg, Err: err}
}
