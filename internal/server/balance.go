package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	reconciledomain "github.com/wattshare/wattshare/internal/reconcile/domain"
)

type balanceResponse struct {
	GlobalBalance float64                        `json:"global_balance"`
	Members       []reconciledomain.MemberBalance `json:"members"`
}

// GetBalance returns the household position: per-member balances and their
// global sum.
func (s *Server) GetBalance(c *gin.Context) {
	members, err := s.reconcileSvc.MemberBalances(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var global float64
	for _, m := range members {
		global += m.Balance
	}

	c.JSON(http.StatusOK, balanceResponse{
		GlobalBalance: global,
		Members:       members,
	})
}
