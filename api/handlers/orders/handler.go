package orders

import (
	"errors"
	"net/http"
	"strconv"

	"shopassist/internal/auth"
	"shopassist/internal/common"
	"shopassist/internal/logger"
	"shopassist/internal/orders"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 订单处理器，所有接口都需要登录
type Handler struct {
	service *orders.Service
}

// NewHandler 创建订单处理器
func NewHandler(service *orders.Service) *Handler {
	return &Handler{service: service}
}

// UpdateStatusRequest 状态变更请求
type UpdateStatusRequest struct {
	Status orders.Status `json:"status" binding:"required" example:"processing"`
}

// List 订单列表
// @Summary 订单列表
// @Description 员工可见全部订单，普通用户只能看到自己的
// @Tags Orders
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "状态过滤"
// @Success 200 {object} common.ListResponse
// @Router /api/orders [get]
func (h *Handler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req orders.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}

	items, total, err := h.service.List(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	common.ResponseList(c, items, total, req.PaginationRequest)
}

// Create 创建订单
// @Summary 创建订单
// @Tags Orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body orders.CreateRequest true "订单明细"
// @Success 201 {object} orders.Order
// @Failure 400 {object} common.ErrorBody
// @Router /api/orders [post]
func (h *Handler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req orders.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		fail(c, err)
		return
	}
	common.ResponseCreated(c, order)
}

// Get 订单详情
// @Summary 订单详情
// @Tags Orders
// @Security BearerAuth
// @Produce json
// @Param id path int true "订单 ID"
// @Success 200 {object} orders.Order
// @Failure 404 {object} common.ErrorBody
// @Router /api/orders/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Delete 删除订单
// @Summary 删除订单
// @Tags Orders
// @Security BearerAuth
// @Param id path int true "订单 ID"
// @Success 204
// @Failure 400 {object} common.ErrorBody
// @Router /api/orders/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStatus 变更订单状态（仅员工）
// @Summary 变更订单状态
// @Tags Orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "订单 ID"
// @Param request body UpdateStatusRequest true "目标状态"
// @Success 200 {object} orders.Order
// @Failure 403 {object} common.ErrorBody
// @Router /api/orders/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AddItem 添加订单明细
// @Summary 添加订单明细
// @Tags Orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "订单 ID"
// @Param request body orders.ItemInput true "明细"
// @Success 200 {object} orders.Order
// @Router /api/orders/{id}/items [post]
func (h *Handler) AddItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req orders.ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	order, err := h.service.AddItem(c.Request.Context(), actor, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// RemoveItem 删除订单明细
// @Summary 删除订单明细
// @Tags Orders
// @Security BearerAuth
// @Produce json
// @Param id path int true "订单 ID"
// @Param itemId path int true "明细 ID"
// @Success 200 {object} orders.Order
// @Router /api/orders/{id}/items/{itemId} [delete]
func (h *Handler) RemoveItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}

	order, err := h.service.RemoveItem(c.Request.Context(), actor, id, itemID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func currentActor(c *gin.Context) (orders.Actor, bool) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.ResponseError(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return orders.Actor{}, false
	}
	return orders.Actor{UserID: userCtx.UserID, Staff: userCtx.IsStaff()}, true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.ResponseError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, orders.ErrItemNotFound):
		common.ResponseError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrForbidden):
		common.ResponseError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, orders.ErrInvalidInput),
		errors.Is(err, orders.ErrNotPending),
		errors.Is(err, orders.ErrInvalidTransition):
		common.ResponseError(c, http.StatusBadRequest, err.Error())
	default:
		logger.WithContext(c.Request.Context()).Error("订单接口失败",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		common.ResponseError(c, http.StatusInternalServerError, "internal server error")
	}
}
