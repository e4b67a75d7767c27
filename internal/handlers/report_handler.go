package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/advance-portal/internal/services"
)

type ReportHandler struct {
	exportService *services.ExportService
	reportService *services.ReportService
}

func NewReportHandler(exportService *services.ExportService, reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{exportService: exportService, reportService: reportService}
}

func sendFile(c *gin.Context, file *services.Export) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// @Summary Export Data
// @Description Download employees, borrowers, vouchers or all of them as a workbook (or CSV for one entity)
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type query string false "employees|borrowers|vouchers|all"
// @Param format query string false "xlsx|csv"
// @Success 200 {file} file "export.xlsx"
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	file, err := h.exportService.Export(c.Request.Context(), c.DefaultQuery("type", services.ExportAll), c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}

// @Summary Import Template
// @Description Download an import template with the expected headers and one example row
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type query string true "employees|borrowers|vouchers"
// @Success 200 {file} file "template.xlsx"
// @Router /reports/template [get]
func (h *ReportHandler) Template(c *gin.Context) {
	file, err := h.exportService.Template(c.Request.Context(), c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}

// @Summary Outstanding Advances PDF
// @Description Download the active advances with their outstanding balances
// @Tags Reports
// @Produce application/pdf
// @Success 200 {file} file "outstanding.pdf"
// @Router /reports/outstanding.pdf [get]
func (h *ReportHandler) OutstandingPDF(c *gin.Context) {
	file, err := h.reportService.OutstandingPDF(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}
