package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	processdomain "github.com/smallbiznis/millrun/internal/process/domain"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
)

type createProcessRequest struct {
	ItemID       snowflake.ID    `json:"production_order_item_id" binding:"required"`
	InputLength  decimal.Decimal `json:"input_length"`
	OutputLength decimal.Decimal `json:"output_length"`
	InputWidth   decimal.Decimal `json:"input_width"`
	Waste        decimal.Decimal `json:"waste"`
	Barcode      string          `json:"barcode" binding:"required"`
	Notes        string          `json:"notes"`
}

type updateProcessRequest struct {
	InputLength  *decimal.Decimal `json:"input_length"`
	OutputLength *decimal.Decimal `json:"output_length"`
	InputWidth   *decimal.Decimal `json:"input_width"`
	Waste        *decimal.Decimal `json:"waste"`
	Barcode      *string          `json:"barcode"`
	Notes        *string          `json:"notes"`
}

// processListFilter reads the item filter and page shared by the process
// and slite listings.
func processListFilter(c *gin.Context) (processdomain.ListFilter, bool) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, bindError(err))
		return processdomain.ListFilter{}, false
	}
	itemID, ok := queryID(c, "production_order_item_id")
	if !ok {
		return processdomain.ListFilter{}, false
	}
	return processdomain.ListFilter{ItemID: itemID, Page: page}, true
}

func (s *Server) CreateProcess(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req createProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.processSvc.CreateProcess(c.Request.Context(), actor, processdomain.CreateProcessRequest{
		ItemID:       req.ItemID,
		InputLength:  req.InputLength,
		OutputLength: req.OutputLength,
		InputWidth:   req.InputWidth,
		Waste:        req.Waste,
		Barcode:      strings.TrimSpace(req.Barcode),
		Notes:        strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProcesses(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	filter, ok := processListFilter(c)
	if !ok {
		return
	}
	resp, err := s.processSvc.ListProcesses(c.Request.Context(), actor, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProcess(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.processSvc.GetProcess(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProcess(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.processSvc.UpdateProcess(c.Request.Context(), actor, id, processdomain.UpdateProcessRequest{
		InputLength:  req.InputLength,
		OutputLength: req.OutputLength,
		InputWidth:   req.InputWidth,
		Waste:        req.Waste,
		Barcode:      req.Barcode,
		Notes:        req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProcess(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.processSvc.DeleteProcess(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createSliteRequest struct {
	createProcessRequest
	OutputLength22 decimal.Decimal `json:"output_length_22"`
	OutputLength44 decimal.Decimal `json:"output_length_44"`
	Destination    string          `json:"destination" binding:"omitempty,oneof=slitting cutting production"`
}

type updateSliteRequest struct {
	updateProcessRequest
	OutputLength22 *decimal.Decimal `json:"output_length_22"`
	OutputLength44 *decimal.Decimal `json:"output_length_44"`
	Destination    *string          `json:"destination" binding:"omitempty,oneof=slitting cutting production"`
}

func (s *Server) CreateSlite(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req createSliteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.processSvc.CreateSlite(c.Request.Context(), actor, processdomain.CreateSliteRequest{
		ItemID:         req.ItemID,
		InputLength:    req.InputLength,
		OutputLength:   req.OutputLength,
		InputWidth:     req.InputWidth,
		OutputLength22: req.OutputLength22,
		OutputLength44: req.OutputLength44,
		Waste:          req.Waste,
		Barcode:        strings.TrimSpace(req.Barcode),
		Destination:    productiondomain.Location(req.Destination),
		Notes:          strings.TrimSpace(req.Notes),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSlites(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	filter, ok := processListFilter(c)
	if !ok {
		return
	}
	resp, err := s.processSvc.ListSlites(c.Request.Context(), actor, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSlite(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := s.processSvc.GetSlite(c.Request.Context(), actor, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateSlite(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateSliteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	update := processdomain.UpdateSliteRequest{
		InputLength:    req.InputLength,
		OutputLength:   req.OutputLength,
		InputWidth:     req.InputWidth,
		OutputLength22: req.OutputLength22,
		OutputLength44: req.OutputLength44,
		Waste:          req.Waste,
		Barcode:        req.Barcode,
		Notes:          req.Notes,
	}
	if req.Destination != nil {
		dest := productiondomain.Location(*req.Destination)
		update.Destination = &dest
	}

	resp, err := s.processSvc.UpdateSlite(c.Request.Context(), actor, id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSlite(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.processSvc.DeleteSlite(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
