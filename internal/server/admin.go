package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/wattshare/wattshare/internal/audit/domain"
	authdomain "github.com/wattshare/wattshare/internal/auth/domain"
	backupdomain "github.com/wattshare/wattshare/internal/backup/domain"
	"go.uber.org/zap"
)

// maxRestoreBodyBytes caps an uploaded backup document.
const maxRestoreBodyBytes = 64 << 20

// Recalculate replays every contribution's tokens consumed from the purchase
// meter deltas.
func (s *Server) Recalculate(c *gin.Context) {
	summary, err := s.reconcileSvc.RecalculateAllTokensConsumed(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ExportBackup streams a full household snapshot as a JSON download.
func (s *Server) ExportBackup(c *gin.Context) {
	doc, err := s.backupSvc.Export(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	compress, _ := strconv.ParseBool(strings.TrimSpace(c.Query("compress")))
	raw, err := s.backupSvc.Encode(doc, backupdomain.ExportOptions{Compress: compress})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("wattshare-backup-%s.json", time.Now().UTC().Format("20060102-150405"))
	contentType := "application/json"
	if compress {
		filename += ".sz"
		contentType = "application/octet-stream"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, raw)
}

// RestoreBackup replaces the whole household state with an uploaded snapshot.
func (s *Server) RestoreBackup(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRestoreBodyBytes))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	doc, err := s.backupSvc.Decode(raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.backupSvc.Restore(c.Request.Context(), doc); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"restored":      true,
		"record_counts": doc.Metadata.RecordCounts,
	})
}

func (s *Server) ListUsers(c *gin.Context) {
	users, err := s.authsvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (s *Server) CreateUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req authdomain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	user, err := s.authsvc.CreateUser(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.authzSvc.SyncUserPolicies(authdomain.ActorForUser(user)); err != nil {
		s.log.Warn("user policy sync failed after create", zap.Error(err))
	}

	c.JSON(http.StatusCreated, user)
}

func (s *Server) UpdateUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req authdomain.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ID = c.Param("id")

	user, err := s.authsvc.UpdateUser(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.authzSvc.SyncUserPolicies(authdomain.ActorForUser(user)); err != nil {
		s.log.Warn("user policy sync failed after update", zap.Error(err))
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) UnlockUser(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.UnlockUser(c.Request.Context(), actor, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	start, err := parseOptionalTime(c.Query("start_at"), false)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseOptionalTime(c.Query("end_at"), true)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: parsePagination(c),
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		TargetID:   strings.TrimSpace(c.Query("target_id")),
		ActorID:    strings.TrimSpace(c.Query("actor_id")),
		StartAt:    start,
		EndAt:      end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
