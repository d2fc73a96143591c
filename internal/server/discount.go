package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/millrun/internal/discount/domain"
)

type createDiscountRequest struct {
	Name              string          `json:"name" binding:"required"`
	Description       string          `json:"description"`
	Type              string          `json:"type" binding:"required,oneof=percentage fixed"`
	QuantityCondition string          `json:"quantityCondition" binding:"required"`
	Quantity          decimal.Decimal `json:"quantity"`
	Value             decimal.Decimal `json:"value"`
}

func (s *Server) CreateDiscount(c *gin.Context) {
	var req createDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.discountSvc.Create(c.Request.Context(), discountdomain.CreateDiscountRequest{
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		Type:              discountdomain.Type(req.Type),
		QuantityCondition: discountdomain.Condition(strings.ToUpper(strings.TrimSpace(req.QuantityCondition))),
		Quantity:          req.Quantity,
		Value:             req.Value,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListDiscounts(c *gin.Context) {
	resp, err := s.discountSvc.List(c.Request.Context(), discountdomain.ListDiscountFilter{
		Search: strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateDiscountRequest struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	Type              *string          `json:"type" binding:"omitempty,oneof=percentage fixed"`
	QuantityCondition *string          `json:"quantityCondition"`
	Quantity          *decimal.Decimal `json:"quantity"`
	Value             *decimal.Decimal `json:"value"`
}

func (s *Server) UpdateDiscount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	update := discountdomain.UpdateDiscountRequest{
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		Value:       req.Value,
	}
	if req.Type != nil {
		t := discountdomain.Type(*req.Type)
		update.Type = &t
	}
	if req.QuantityCondition != nil {
		cond := discountdomain.Condition(strings.ToUpper(strings.TrimSpace(*req.QuantityCondition)))
		update.QuantityCondition = &cond
	}

	resp, err := s.discountSvc.Update(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDiscount(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.discountSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
