package api

import (
	"shopassist/internal/auth"
	"shopassist/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有业务路由
func RegisterRoutes(router *gin.Engine, c *AppContainer, h *Handlers) {
	api := router.Group("/api")

	registerAuthRoutes(api, c, h)
	registerCatalogRoutes(api, c, h)
	registerOrderRoutes(api, c, h)
	registerKnowledgeRoutes(api, c, h)
	registerChatRoutes(router, c, h)
}

func registerAuthRoutes(api *gin.RouterGroup, c *AppContainer, h *Handlers) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", auth.AuthMiddleware(c.JWTService), h.Auth.Logout)
		authGroup.GET("/me", auth.AuthMiddleware(c.JWTService), h.Auth.Me)
	}
}

// registerCatalogRoutes 目录接口对外只读，写操作仅限员工
// 路径保留结尾斜杠，助手侧客户端按此约定请求
func registerCatalogRoutes(api *gin.RouterGroup, c *AppContainer, h *Handlers) {
	api.GET("/categories/", h.Catalog.ListCategories)
	api.GET("/categories/:slug/", h.Catalog.GetCategory)
	api.GET("/subcategories/", h.Catalog.ListSubCategories)
	api.GET("/subcategories/:id/", h.Catalog.GetSubCategory)
	api.GET("/products/", h.Catalog.ListProducts)
	api.GET("/products/:id/", h.Catalog.GetProduct)
	api.GET("/offers/", h.Catalog.ListOffers)
	api.GET("/campaigns/", h.Catalog.ListCampaigns)

	staff := api.Group("", auth.AuthMiddleware(c.JWTService), auth.RequireRole(auth.RoleStaff))
	{
		staff.POST("/categories/", h.Catalog.CreateCategory)
		staff.PUT("/categories/:slug/", h.Catalog.UpdateCategory)
		staff.DELETE("/categories/:slug/", h.Catalog.DeleteCategory)

		staff.POST("/subcategories/", h.Catalog.CreateSubCategory)

		staff.POST("/products/", h.Catalog.CreateProduct)
		staff.PUT("/products/:id/", h.Catalog.UpdateProduct)
		staff.DELETE("/products/:id/", h.Catalog.DeleteProduct)

		staff.POST("/campaigns/", h.Catalog.CreateCampaign)
		staff.POST("/campaigns/:id/apply", h.Catalog.ApplyCampaignRule)

		staff.POST("/offers/", h.Catalog.CreateOffer)
		staff.POST("/offers/:id/deactivate", h.Catalog.DeactivateOffer)
	}
}

func registerOrderRoutes(api *gin.RouterGroup, c *AppContainer, h *Handlers) {
	ordersGroup := api.Group("/orders", auth.AuthMiddleware(c.JWTService))
	{
		ordersGroup.GET("", h.Orders.List)
		ordersGroup.POST("", h.Orders.Create)
		ordersGroup.GET("/:id", h.Orders.Get)
		ordersGroup.DELETE("/:id", h.Orders.Delete)
		ordersGroup.PATCH("/:id/status", h.Orders.UpdateStatus)
		ordersGroup.POST("/:id/items", h.Orders.AddItem)
		ordersGroup.DELETE("/:id/items/:itemId", h.Orders.RemoveItem)
	}
}

func registerKnowledgeRoutes(api *gin.RouterGroup, c *AppContainer, h *Handlers) {
	if h.Knowledge == nil {
		return
	}
	kb := api.Group("/knowledge")
	{
		// 检索公开，供助手工具调用
		kb.GET("/search", h.Knowledge.Search)

		staff := kb.Group("", auth.AuthMiddleware(c.JWTService), auth.RequireRole(auth.RoleStaff))
		staff.POST("/documents", h.Knowledge.Upload)
		staff.GET("/documents", h.Knowledge.ListDocuments)
		staff.GET("/documents/:id", h.Knowledge.GetDocument)
	}
}

func registerChatRoutes(router *gin.Engine, c *AppContainer, h *Handlers) {
	chat := router.Group("/chat", auth.OptionalAuthMiddleware(c.JWTService))
	if c.ChatLimiter != nil {
		chat.Use(middleware.RateLimitMiddleware(c.ChatLimiter))
	}
	{
		chat.POST("", h.Chat.Chat)
		chat.GET("/sessions/:id", h.Chat.History)
		chat.GET("/ws", h.ChatWS.Connect)
	}
}
