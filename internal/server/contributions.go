package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contributiondomain "github.com/wattshare/wattshare/internal/contribution/domain"
)

func (s *Server) ListContributions(c *gin.Context) {
	start, end, err := parseDateRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.contributionSvc.List(c.Request.Context(), contributiondomain.ListContributionRequest{
		Pagination: parsePagination(c),
		UserID:     c.Query("user_id"),
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetContributionByID(c *gin.Context) {
	contribution, err := s.contributionSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribution)
}

func (s *Server) CreateContribution(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req contributiondomain.CreateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	contribution, err := s.contributionSvc.Create(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, contribution)
}

func (s *Server) UpdateContribution(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req contributiondomain.UpdateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ID = c.Param("id")

	contribution, err := s.contributionSvc.Update(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, contribution)
}

func (s *Server) DeleteContribution(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.contributionSvc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
