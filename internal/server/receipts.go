package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	receiptdomain "github.com/wattshare/wattshare/internal/receipt/domain"
)

func (s *Server) GetReceiptByPurchase(c *gin.Context) {
	receipt, err := s.receiptSvc.GetByPurchase(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) CreateReceipt(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req receiptdomain.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.PurchaseID = c.Param("id")

	receipt, err := s.receiptSvc.Create(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}
