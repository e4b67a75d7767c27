package services

import (
	"strconv"

	"gorm.io/gorm"

	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/repository"
	"github.com/sjperalta/advance-portal/internal/session"
)

// Services holds all service instances
type Services struct {
	Auth     *AuthService
	Employee *EmployeeService
	Ledger   *LedgerService
	Import   *ImportService
	Audit    *AuditService
	Export   *ExportService
	Report   *ReportService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, sessions session.Store, runner AsyncRunner, cfg *config.Config, db *gorm.DB) *Services {
	auditSvc := NewAuditService(db, runner)

	return &Services{
		Auth:     NewAuthService(repos.User, sessions, auditSvc, cfg),
		Employee: NewEmployeeService(repos, auditSvc),
		Ledger:   NewLedgerService(repos, auditSvc),
		Import:   NewImportService(repos, auditSvc),
		Audit:    auditSvc,
		Export:   NewExportService(repos),
		Report:   NewReportService(repos),
	}
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
