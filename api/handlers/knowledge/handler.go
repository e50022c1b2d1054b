package knowledge

import (
	"errors"
	"net/http"
	"strconv"

	"shopassist/internal/auth"
	"shopassist/internal/common"
	"shopassist/internal/knowledge"
	"shopassist/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 知识库处理器
type Handler struct {
	service *knowledge.Service
}

// NewHandler 创建知识库处理器
func NewHandler(service *knowledge.Service) *Handler {
	return &Handler{service: service}
}

// SearchResponse 检索结果
type SearchResponse struct {
	Results []knowledge.SearchHit `json:"results"`
}

// Upload 上传文档并异步入库
// @Summary 上传知识库文档
// @Description 支持 .pdf/.txt/.md，上传后异步解析、分块和向量化
// @Tags Knowledge
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "文档"
// @Success 202 {object} knowledge.Document
// @Failure 400 {object} common.ErrorBody
// @Failure 413 {object} common.ErrorBody
// @Router /api/knowledge/documents [post]
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.ResponseError(c, http.StatusBadRequest, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		common.ResponseError(c, http.StatusBadRequest, "cannot read uploaded file")
		return
	}
	defer file.Close()

	var uploadedBy uint
	if userCtx, ok := auth.GetUserContext(c); ok {
		uploadedBy = userCtx.UserID
	}

	doc, err := h.service.Upload(c.Request.Context(), fileHeader.Filename, file, uploadedBy)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, doc)
}

// ListDocuments 文档列表
// @Summary 知识库文档列表
// @Tags Knowledge
// @Security BearerAuth
// @Produce json
// @Success 200 {array} knowledge.Document
// @Router /api/knowledge/documents [get]
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// GetDocument 文档详情
// @Summary 知识库文档详情
// @Tags Knowledge
// @Security BearerAuth
// @Produce json
// @Param id path int true "文档 ID"
// @Success 200 {object} knowledge.Document
// @Failure 404 {object} common.ErrorBody
// @Router /api/knowledge/documents/{id} [get]
func (h *Handler) GetDocument(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.ResponseError(c, http.StatusBadRequest, "invalid id")
		return
	}
	doc, err := h.service.GetDocument(c.Request.Context(), uint(id))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Search 语义检索
// @Summary 知识库检索
// @Tags Knowledge
// @Produce json
// @Param q query string true "检索词"
// @Param top_k query int false "返回条数"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} common.ErrorBody
// @Router /api/knowledge/search [get]
func (h *Handler) Search(c *gin.Context) {
	topK := 0
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 20 {
			common.ResponseError(c, http.StatusBadRequest, "top_k must be between 1 and 20")
			return
		}
		topK = n
	}

	hits, err := h.service.Search(c.Request.Context(), c.Query("q"), topK)
	if err != nil {
		fail(c, err)
		return
	}
	if hits == nil {
		hits = []knowledge.SearchHit{}
	}
	c.JSON(http.StatusOK, SearchResponse{Results: hits})
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, knowledge.ErrNotFound):
		common.ResponseError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, knowledge.ErrUnsupportedType), errors.Is(err, knowledge.ErrEmptyQuery):
		common.ResponseError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, knowledge.ErrFileTooLarge):
		common.ResponseError(c, http.StatusRequestEntityTooLarge, err.Error())
	default:
		logger.WithContext(c.Request.Context()).Error("知识库接口失败",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		common.ResponseError(c, http.StatusInternalServerError, "internal server error")
	}
}
