package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
)

type createProductionOrderRequest struct {
	RulerID           snowflake.ID    `json:"ruler_id" binding:"required"`
	BatchID           snowflake.ID    `json:"batch_id" binding:"required"`
	TypeItemID        snowflake.ID    `json:"type_item"`
	ConstantWidth     decimal.Decimal `json:"constant_width"`
	Length            decimal.Decimal `json:"length"`
	ConstantThickness decimal.Decimal `json:"constant_thickness"`
	Notes             string          `json:"notes"`
}

func (s *Server) CreateProductionOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req createProductionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.productionSvc.CreateOrder(c.Request.Context(), actor, productiondomain.CreateOrderRequest{
		RulerID:           req.RulerID,
		BatchID:           req.BatchID,
		TypeItemID:        req.TypeItemID,
		ConstantWidth:     req.ConstantWidth,
		Length:            req.Length,
		ConstantThickness: req.ConstantThickness,
		Notes:             strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProductionOrders(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
		Search string `form:"search"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.productionSvc.ListOrders(c.Request.Context(), actor, productiondomain.ListFilter{
		Status: productiondomain.Status(strings.TrimSpace(query.Status)),
		Search: strings.TrimSpace(query.Search),
		Page:   query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductionOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.productionSvc.GetOrder(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProductionOrderRequest struct {
	RulerID           *snowflake.ID    `json:"ruler_id"`
	BatchID           *snowflake.ID    `json:"batch_id"`
	TypeItemID        *snowflake.ID    `json:"type_item"`
	ConstantWidth     *decimal.Decimal `json:"constant_width"`
	Length            *decimal.Decimal `json:"length"`
	ConstantThickness *decimal.Decimal `json:"constant_thickness"`
	Status            *string          `json:"status"`
	Notes             *string          `json:"notes"`
}

func (s *Server) UpdateProductionOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateProductionOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	update := productiondomain.UpdateOrderRequest{
		RulerID:           req.RulerID,
		BatchID:           req.BatchID,
		TypeItemID:        req.TypeItemID,
		ConstantWidth:     req.ConstantWidth,
		Length:            req.Length,
		ConstantThickness: req.ConstantThickness,
		Notes:             req.Notes,
	}
	if req.Status != nil {
		status := productiondomain.Status(strings.TrimSpace(*req.Status))
		update.Status = &status
	}

	resp, err := s.productionSvc.UpdateOrder(c.Request.Context(), actor, id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProductionOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.productionSvc.DeleteOrder(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type productionItemSpec struct {
	ProductionTypes []string        `json:"production_types" binding:"required,min=1,dive,oneof=warehouse slitting cutting gluing"`
	ConstantWidth   decimal.Decimal `json:"constant_width"`
	Length          decimal.Decimal `json:"length"`
	Quantity        int64           `json:"quantity" binding:"required,gte=1"`
	Notes           string          `json:"notes"`
}

type createProductionItemsRequest struct {
	Items []productionItemSpec `json:"items" binding:"required,min=1,dive"`
}

func (s *Server) CreateProductionItems(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req createProductionItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	specs := make([]productiondomain.ItemSpec, 0, len(req.Items))
	for _, item := range req.Items {
		types := make([]productiondomain.ProductionType, 0, len(item.ProductionTypes))
		for _, t := range item.ProductionTypes {
			types = append(types, productiondomain.ProductionType(t))
		}
		specs = append(specs, productiondomain.ItemSpec{
			Types:         types,
			ConstantWidth: item.ConstantWidth,
			Length:        item.Length,
			Quantity:      item.Quantity,
			Notes:         strings.TrimSpace(item.Notes),
		})
	}

	resp, err := s.productionSvc.CreateItems(c.Request.Context(), actor, id, specs)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProductionItems(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.productionSvc.ListItems(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductionItem(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.productionSvc.GetItem(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProductionItemStatus(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.productionSvc.UpdateItemStatus(c.Request.Context(), actor, id, productiondomain.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProductionItemRequest struct {
	ConstantWidth *decimal.Decimal `json:"constant_width"`
	Length        *decimal.Decimal `json:"length"`
	Quantity      *int64           `json:"quantity" binding:"omitempty,gte=1"`
	Status        *string          `json:"status"`
	Notes         *string          `json:"notes"`
}

func (s *Server) UpdateProductionItem(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateProductionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	update := productiondomain.UpdateItemRequest{
		ConstantWidth: req.ConstantWidth,
		Length:        req.Length,
		Quantity:      req.Quantity,
		Notes:         req.Notes,
	}
	if req.Status != nil {
		status := productiondomain.Status(strings.TrimSpace(*req.Status))
		update.Status = &status
	}

	resp, err := s.productionSvc.UpdateItem(c.Request.Context(), actor, id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProductionItem(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.productionSvc.DeleteItem(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
