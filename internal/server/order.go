package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/millrun/internal/order/domain"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
)

type orderItemRequest struct {
	RulerID           snowflake.ID    `json:"ruler_id" binding:"required"`
	BatchID           snowflake.ID    `json:"batch_id" binding:"required"`
	TypeItemID        snowflake.ID    `json:"type_item"`
	ConstantWidth     decimal.Decimal `json:"constant_width"`
	Length            decimal.Decimal `json:"length"`
	ConstantThickness decimal.Decimal `json:"constant_thickness"`
	Quantity          int64           `json:"quantity" binding:"required,gte=1"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Notes             string          `json:"notes"`
}

func (r orderItemRequest) input() orderdomain.ItemInput {
	return orderdomain.ItemInput{
		RulerID:           r.RulerID,
		BatchID:           r.BatchID,
		TypeItemID:        r.TypeItemID,
		ConstantWidth:     r.ConstantWidth,
		Length:            r.Length,
		ConstantThickness: r.ConstantThickness,
		Quantity:          r.Quantity,
		UnitPrice:         r.UnitPrice,
		Notes:             strings.TrimSpace(r.Notes),
	}
}

type createOrderRequest struct {
	CustomerID snowflake.ID       `json:"customer_id" binding:"required"`
	Notes      string             `json:"notes"`
	Items      []orderItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	items := make([]orderdomain.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, item.input())
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), orderdomain.CreateOrderRequest{
		CustomerID:  req.CustomerID,
		SalesUserID: actor.ID,
		Notes:       strings.TrimSpace(req.Notes),
		Items:       items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}
	customerID, ok := queryID(c, "customer_id")
	if !ok {
		return
	}
	salesUserID, ok := queryID(c, "sales_user_id")
	if !ok {
		return
	}
	start, end, ok := queryDateRange(c)
	if !ok {
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), orderdomain.ListFilter{
		CustomerID:  customerID,
		SalesUserID: salesUserID,
		Status:      orderdomain.Status(strings.TrimSpace(query.Status)),
		StartDate:   start,
		EndDate:     end,
		Page:        query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.orderSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateOrderRequest struct {
	CustomerID *snowflake.ID `json:"customer_id"`
	Notes      *string       `json:"notes"`
}

func (s *Server) UpdateOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.orderSvc.Update(c.Request.Context(), id, orderdomain.UpdateOrderRequest{
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.orderSvc.UpdateStatus(c.Request.Context(), id, orderdomain.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.orderSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) AddOrderItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req orderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.orderSvc.AddItem(c.Request.Context(), id, req.input())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type updateOrderItemRequest struct {
	RulerID           *snowflake.ID    `json:"ruler_id"`
	BatchID           *snowflake.ID    `json:"batch_id"`
	TypeItemID        *snowflake.ID    `json:"type_item"`
	ConstantWidth     *decimal.Decimal `json:"constant_width"`
	Length            *decimal.Decimal `json:"length"`
	ConstantThickness *decimal.Decimal `json:"constant_thickness"`
	Quantity          *int64           `json:"quantity" binding:"omitempty,gte=1"`
	UnitPrice         *decimal.Decimal `json:"unit_price"`
	Notes             *string          `json:"notes"`
}

func (s *Server) UpdateOrderItem(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var req updateOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.orderSvc.UpdateItem(c.Request.Context(), orderID, itemID, orderdomain.UpdateItemRequest{
		RulerID:           req.RulerID,
		BatchID:           req.BatchID,
		TypeItemID:        req.TypeItemID,
		ConstantWidth:     req.ConstantWidth,
		Length:            req.Length,
		ConstantThickness: req.ConstantThickness,
		Quantity:          req.Quantity,
		UnitPrice:         req.UnitPrice,
		Notes:             req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteOrderItem(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	resp, err := s.orderSvc.DeleteItem(c.Request.Context(), orderID, itemID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
