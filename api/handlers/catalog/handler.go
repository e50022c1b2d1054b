package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"shopassist/internal/catalog"
	"shopassist/internal/common"
	"shopassist/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handler 商品目录处理器
type Handler struct {
	service *catalog.Service
	// 写操作后清空助手侧的目录缓存
	onChange func()
}

// NewHandler 创建目录处理器
func NewHandler(service *catalog.Service, onChange func()) *Handler {
	if onChange == nil {
		onChange = func() {}
	}
	return &Handler{service: service, onChange: onChange}
}

// ApplyRuleRequest 活动规则请求
type ApplyRuleRequest struct {
	Rule          string          `json:"rule" binding:"required" example:"price > 100 && category_id == 2"`
	PercentageOff decimal.Decimal `json:"percentage_off" swaggertype:"number"`
}

// ============================================================================
// 公开读接口
// ============================================================================

// ListCategories 分类列表
// @Summary 分类列表（含子分类）
// @Tags Catalog
// @Produce json
// @Success 200 {array} catalog.CategoryView
// @Router /api/categories/ [get]
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GetCategory 按 slug 查询分类
// @Summary 分类详情
// @Tags Catalog
// @Produce json
// @Param slug path string true "分类 slug"
// @Success 200 {object} catalog.CategoryView
// @Failure 404 {object} common.ErrorBody
// @Router /api/categories/{slug}/ [get]
func (h *Handler) GetCategory(c *gin.Context) {
	category, err := h.service.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// ListSubCategories 子分类列表
// @Summary 子分类列表
// @Tags Catalog
// @Produce json
// @Param category query int false "分类 ID"
// @Success 200 {array} catalog.SubCategory
// @Router /api/subcategories/ [get]
func (h *Handler) ListSubCategories(c *gin.Context) {
	categoryID, ok := optionalID(c, "category")
	if !ok {
		return
	}
	var id uint
	if categoryID != nil {
		id = *categoryID
	}
	subs, err := h.service.ListSubCategories(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// GetSubCategory 子分类详情（含商品）
// @Summary 子分类详情
// @Tags Catalog
// @Produce json
// @Param id path int true "子分类 ID"
// @Success 200 {object} catalog.SubCategoryView
// @Failure 404 {object} common.ErrorBody
// @Router /api/subcategories/{id}/ [get]
func (h *Handler) GetSubCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.service.GetSubCategory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ListProducts 商品列表
// @Summary 商品列表
// @Description 仅返回上架且可售的商品，可按分类、子分类过滤
// @Tags Catalog
// @Produce json
// @Param category query int false "分类 ID"
// @Param subcategory query int false "子分类 ID"
// @Param q query string false "关键词"
// @Success 200 {array} catalog.ProductView
// @Failure 400 {object} common.ErrorBody
// @Router /api/products/ [get]
func (h *Handler) ListProducts(c *gin.Context) {
	categoryID, ok := optionalID(c, "category")
	if !ok {
		return
	}
	subCategoryID, ok := optionalID(c, "subcategory")
	if !ok {
		return
	}

	products, err := h.service.ListProducts(c.Request.Context(), catalog.ProductFilter{
		CategoryID:    categoryID,
		SubCategoryID: subCategoryID,
		Keyword:       strings.TrimSpace(c.Query("q")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetProduct 商品详情，浏览量加一
// @Summary 商品详情
// @Tags Catalog
// @Produce json
// @Param id path int true "商品 ID"
// @Success 200 {object} catalog.ProductView
// @Failure 400 {object} common.ErrorBody
// @Failure 404 {object} common.ErrorBody
// @Router /api/products/{id}/ [get]
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// ListOffers 当前有效优惠
// @Summary 当前有效优惠
// @Tags Catalog
// @Produce json
// @Success 200 {array} catalog.OfferView
// @Router /api/offers/ [get]
func (h *Handler) ListOffers(c *gin.Context) {
	offers, err := h.service.ListActiveOffers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

// ListCampaigns 活动列表
// @Summary 活动列表
// @Tags Catalog
// @Produce json
// @Success 200 {array} catalog.CampaignView
// @Router /api/campaigns/ [get]
func (h *Handler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.service.ListCampaigns(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

// ============================================================================
// 员工写接口
// ============================================================================

// CreateCategory 创建分类
// @Summary 创建分类
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body catalog.CategoryInput true "分类"
// @Success 201 {object} catalog.CategoryView
// @Failure 400 {object} common.ErrorBody
// @Failure 409 {object} common.ErrorBody
// @Router /api/categories/ [post]
func (h *Handler) CreateCategory(c *gin.Context) {
	var req catalog.CategoryInput
	if !bind(c, &req) {
		return
	}
	category, err := h.service.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	common.ResponseCreated(c, category)
}

// UpdateCategory 更新分类
// @Summary 更新分类
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param slug path string true "分类 slug"
// @Param request body catalog.CategoryInput true "分类"
// @Success 200 {object} catalog.CategoryView
// @Router /api/categories/{slug}/ [put]
func (h *Handler) UpdateCategory(c *gin.Context) {
	existing, err := h.service.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req catalog.CategoryInput
	if !bind(c, &req) {
		return
	}
	category, err := h.service.UpdateCategory(c.Request.Context(), existing.ID, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	c.JSON(http.StatusOK, category)
}

// DeleteCategory 删除分类，商品保留
// @Summary 删除分类
// @Tags Catalog
// @Security BearerAuth
// @Param slug path string true "分类 slug"
// @Success 204
// @Router /api/categories/{slug}/ [delete]
func (h *Handler) DeleteCategory(c *gin.Context) {
	existing, err := h.service.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), existing.ID); err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	c.Status(http.StatusNoContent)
}

// CreateSubCategory 创建子分类
// @Summary 创建子分类
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body catalog.SubCategoryInput true "子分类"
// @Success 201 {object} catalog.SubCategory
// @Router /api/subcategories/ [post]
func (h *Handler) CreateSubCategory(c *gin.Context) {
	var req catalog.SubCategoryInput
	if !bind(c, &req) {
		return
	}
	sub, err := h.service.CreateSubCategory(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	common.ResponseCreated(c, sub)
}

// CreateProduct 创建商品
// @Summary 创建商品
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body catalog.ProductInput true "商品"
// @Success 201 {object} catalog.ProductView
// @Router /api/products/ [post]
func (h *Handler) CreateProduct(c *gin.Context) {
	var req catalog.ProductInput
	if !bind(c, &req) {
		return
	}
	product, err := h.service.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	common.ResponseCreated(c, product)
}

// UpdateProduct 更新商品
// @Summary 更新商品
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "商品 ID"
// @Param request body catalog.ProductInput true "商品"
// @Success 200 {object} catalog.ProductView
// @Router /api/products/{id}/ [put]
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req catalog.ProductInput
	if !bind(c, &req) {
		return
	}
	product, err := h.service.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	c.JSON(http.StatusOK, product)
}

// DeleteProduct 删除商品
// @Summary 删除商品
// @Tags Catalog
// @Security BearerAuth
// @Param id path int true "商品 ID"
// @Success 204
// @Router /api/products/{id}/ [delete]
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	c.Status(http.StatusNoContent)
}

// CreateCampaign 创建活动
// @Summary 创建活动
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body catalog.CampaignInput true "活动"
// @Success 201 {object} catalog.CampaignView
// @Router /api/campaigns/ [post]
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req catalog.CampaignInput
	if !bind(c, &req) {
		return
	}
	campaign, err := h.service.CreateCampaign(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	common.ResponseCreated(c, campaign)
}

// ApplyCampaignRule 按规则批量创建优惠
// @Summary 应用活动规则
// @Description rule 为布尔表达式，可用变量 price, stock, likes_count, views_count, category_id, subcategory_id
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "活动 ID"
// @Param request body ApplyRuleRequest true "规则"
// @Success 201 {array} catalog.OfferView
// @Failure 400 {object} common.ErrorBody
// @Router /api/campaigns/{id}/apply [post]
func (h *Handler) ApplyCampaignRule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ApplyRuleRequest
	if !bind(c, &req) {
		return
	}
	offers, err := h.service.ApplyCampaignRule(c.Request.Context(), id, req.Rule, req.PercentageOff)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	common.ResponseCreated(c, offers)
}

// CreateOffer 创建优惠
// @Summary 创建优惠
// @Description percentage_off 与 new_price 二选一
// @Tags Catalog
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body catalog.OfferInput true "优惠"
// @Success 201 {object} catalog.OfferView
// @Failure 409 {object} common.ErrorBody
// @Router /api/offers/ [post]
func (h *Handler) CreateOffer(c *gin.Context) {
	var req catalog.OfferInput
	if !bind(c, &req) {
		return
	}
	offer, err := h.service.CreateOffer(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	common.ResponseCreated(c, offer)
}

// DeactivateOffer 停用优惠
// @Summary 停用优惠
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Param id path int true "优惠 ID"
// @Success 200 {object} catalog.OfferView
// @Router /api/offers/{id}/deactivate [post]
func (h *Handler) DeactivateOffer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	offer, err := h.service.DeactivateOffer(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.onChange()
	c.JSON(http.StatusOK, offer)
}

// fail 按错误类型映射状态码
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		common.ResponseError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrInvalidInput):
		common.ResponseError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrConflict):
		common.ResponseError(c, http.StatusConflict, err.Error())
	default:
		logger.WithContext(c.Request.Context()).Error("目录接口失败",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		common.ResponseError(c, http.StatusInternalServerError, "internal server error")
	}
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.ResponseError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		common.ResponseError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// optionalID 解析查询参数中的 ID；缺省或 0 视为不过滤
func optionalID(c *gin.Context, name string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		common.ResponseError(c, http.StatusBadRequest, "invalid "+name)
		return nil, false
	}
	if id == 0 {
		return nil, true
	}
	v := uint(id)
	return &v, true
}
