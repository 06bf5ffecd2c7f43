package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	reportdomain "github.com/wattshare/wattshare/internal/report/domain"
)

// ExportCSV streams one raw table as CSV, selected with ?table=.
func (s *Server) ExportCSV(c *gin.Context) {
	table := strings.TrimSpace(c.Query("table"))
	switch table {
	case reportdomain.TablePurchases, reportdomain.TableContributions, reportdomain.TableMeterReadings:
	default:
		AbortWithError(c, reportdomain.ErrUnknownTable)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table+".csv"))
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)

	if err := s.reportSvc.ExportCSV(c.Request.Context(), table, c.Writer); err != nil {
		// Headers may already be out; surface what we can.
		AbortWithError(c, err)
	}
}

// SettlementCSV streams the combined settlement view.
func (s *Server) SettlementCSV(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="settlement.csv"`)
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)

	if err := s.reportSvc.SettlementCSV(c.Request.Context(), c.Writer); err != nil {
		AbortWithError(c, err)
	}
}

// StatementPDF renders the household statement.
func (s *Server) StatementPDF(c *gin.Context) {
	reader, err := s.reportSvc.StatementPDF(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("statement-%s.pdf", time.Now().UTC().Format("2006-01"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
