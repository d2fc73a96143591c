package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/millrun/internal/invoice/domain"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
)

type createInvoiceRequest struct {
	OrderID    snowflake.ID    `json:"order_id" binding:"required"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Notes      string          `json:"notes"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		OrderID:    req.OrderID,
		IssuedBy:   actor.ID,
		PaidAmount: req.PaidAmount,
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	customerID, ok := queryID(c, "customer_id")
	if !ok {
		return
	}
	orderID, ok := queryID(c, "order_id")
	if !ok {
		return
	}
	issuedBy, ok := queryID(c, "issued_by")
	if !ok {
		return
	}
	start, end, ok := queryDateRange(c)
	if !ok {
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListFilter{
		CustomerID: customerID,
		OrderID:    orderID,
		IssuedBy:   issuedBy,
		StartDate:  start,
		EndDate:    end,
		Page:       query,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.invoiceSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateInvoiceRequest struct {
	PaidAmount *decimal.Decimal `json:"paid_amount"`
	Notes      *string          `json:"notes"`
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), id, invoicedomain.UpdateInvoiceRequest{
		PaidAmount: req.PaidAmount,
		Notes:      req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.invoiceSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) AddInvoicePayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.invoiceSvc.AddPayment(c.Request.Context(), id, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, name, err := s.invoiceSvc.RenderPDF(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", out)
}
