package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNextFundablePurchase returns the head of the funding queue: the oldest
// purchase still waiting for a contribution.
func (s *Server) GetNextFundablePurchase(c *gin.Context) {
	status, err := s.gateSvc.FindOldestPurchaseWithoutContribution(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
