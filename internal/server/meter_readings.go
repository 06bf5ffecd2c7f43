package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	meterreadingdomain "github.com/wattshare/wattshare/internal/meterreading/domain"
)

func (s *Server) ListMeterReadings(c *gin.Context) {
	start, end, err := parseDateRange(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.meterReadingSvc.List(c.Request.Context(), meterreadingdomain.ListMeterReadingRequest{
		Pagination: parsePagination(c),
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetMeterReadingByID(c *gin.Context) {
	reading, err := s.meterReadingSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

func (s *Server) CreateMeterReading(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req meterreadingdomain.CreateMeterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	reading, err := s.meterReadingSvc.Create(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reading)
}

func (s *Server) UpdateMeterReading(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req meterreadingdomain.UpdateMeterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.ID = c.Param("id")

	reading, err := s.meterReadingSvc.Update(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, reading)
}

func (s *Server) DeleteMeterReading(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.meterReadingSvc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
