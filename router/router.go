package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"gorm.io/gorm"
)

// PricingFrom extracts the order core's settings from the app config.
func PricingFrom(cfg config.Config) services.PricingConfig {
	return services.PricingConfig{
		VATRate:                cfg.VATRate,
		DeliveryFee:            cfg.DeliveryFee,
		OrderPrefix:            cfg.OrderPrefix,
		RefundDiscountOnCancel: cfg.RefundDiscountOnCancel,
	}
}

func SetupRouter(db *gorm.DB, cfg config.Config) *gin.Engine {
	orders := services.NewOrderService(db, PricingFrom(cfg), services.SpendTierProvider{}, kds.Notifier{})
	return NewEngine(db, cfg, orders)
}

// NewEngine wires handlers around an already built order service.
func NewEngine(db *gorm.DB, cfg config.Config, orders *services.OrderService) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.CORSOrigin))
	r.Use(middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).RateLimit())

	catalog := services.NewCatalogService(db, kds.Notifier{})

	employeeCtrl := controllers.NewEmployeeController(db)
	categoryCtrl := controllers.NewCategoryController(db)
	productCtrl := controllers.NewProductController(db, catalog)
	ingredientCtrl := controllers.NewIngredientController(db, catalog)
	discountCtrl := controllers.NewDiscountController(db, catalog)
	customerCtrl := controllers.NewCustomerController(db, services.SpendTierProvider{})
	tableCtrl := controllers.NewTableController(db)
	orderCtrl := controllers.NewOrderController(orders)
	receiptCtrl := controllers.NewReceiptController(orders, cfg.RestaurantName)
	paymentCtrl := controllers.NewPaymentController(orders)
	notificationCtrl := controllers.NewNotificationController(db)
	adminCtrl := controllers.NewAdminController(db)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/login", employeeCtrl.Login)
	}

	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/kds", controllers.KDSHandler)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())

	managers := middlewares.RequireRoles(models.RoleManager)
	frontDesk := middlewares.RequireRoles(models.RoleManager, models.RoleCashier, models.RoleWaiter)
	kitchen := middlewares.RequireRoles(models.RoleManager, models.RoleChef)

	// EMPLOYEES
	api.GET("/profile", employeeCtrl.GetProfile)
	api.GET("/employees", managers, employeeCtrl.GetAllEmployees)
	api.POST("/employees", middlewares.RequireRoles(), employeeCtrl.Register)
	api.PATCH("/employees/:employee_id/active", middlewares.RequireRoles(), employeeCtrl.SetEmployeeActive)

	// CATALOG
	api.GET("/categories", categoryCtrl.GetAllCategories)
	api.GET("/categories/:cat_id", categoryCtrl.GetCategoryByID)
	api.POST("/categories", managers, categoryCtrl.CreateCategory)
	api.PATCH("/categories/:cat_id", managers, categoryCtrl.UpdateCategory)
	api.DELETE("/categories/:cat_id", managers, categoryCtrl.DeleteCategory)

	api.GET("/products", productCtrl.GetAllProducts)
	api.GET("/products/:product_id", productCtrl.GetProductByID)
	api.GET("/products/:product_id/availability", productCtrl.GetAvailability)
	api.POST("/products", managers, productCtrl.CreateProduct)
	api.PATCH("/products/:product_id", managers, productCtrl.UpdateProduct)
	api.PUT("/products/:product_id/recipe", managers, productCtrl.SetRecipe)

	api.GET("/ingredients", ingredientCtrl.GetAllIngredients)
	api.GET("/ingredients/:ingredient_id", ingredientCtrl.GetIngredientByID)
	api.POST("/ingredients", managers, ingredientCtrl.CreateIngredient)
	api.POST("/ingredients/:ingredient_id/adjust", kitchen, ingredientCtrl.AdjustIngredient)

	// DISCOUNTS
	api.GET("/discounts", discountCtrl.GetAllDiscounts)
	api.GET("/discounts/:discount_id", discountCtrl.GetDiscountByID)
	api.POST("/discounts", managers, discountCtrl.CreateDiscount)
	api.PATCH("/discounts/:discount_id", managers, discountCtrl.UpdateDiscount)
	api.DELETE("/discounts/:discount_id", managers, discountCtrl.DeleteDiscount)

	// CUSTOMERS
	api.GET("/customers", frontDesk, customerCtrl.GetAllCustomers)
	api.POST("/customers", frontDesk, customerCtrl.CreateCustomer)
	api.GET("/customers/:customer_id", frontDesk, customerCtrl.GetCustomerByID)
	api.GET("/customer-tiers", customerCtrl.GetAllTiers)
	api.POST("/customer-tiers", managers, customerCtrl.CreateTier)

	// TABLES
	api.GET("/tables", tableCtrl.GetAllTables)
	api.GET("/tables/:table_id", tableCtrl.GetTableByID)
	api.POST("/tables", managers, tableCtrl.CreateTable)
	api.PATCH("/tables/:table_id", frontDesk, tableCtrl.UpdateTableStatus)
	api.DELETE("/tables/:table_id", managers, tableCtrl.DeleteTable)
	api.GET("/table-groups", tableCtrl.GetAllTableGroups)
	api.POST("/table-groups", frontDesk, tableCtrl.CreateTableGroup)
	api.DELETE("/table-groups/:group_id", frontDesk, tableCtrl.DeleteTableGroup)

	// ORDERS; the kitchen moves status forward, the front desk edits lines
	api.GET("/orders", orderCtrl.GetAllOrders)
	api.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	api.POST("/orders", frontDesk, orderCtrl.CreateOrder)
	api.PATCH("/orders/:order_id", middlewares.RequireRoles(models.RoleManager, models.RoleCashier, models.RoleWaiter, models.RoleChef), orderCtrl.UpdateOrder)
	api.POST("/orders/:order_id/cancel", middlewares.RequireRoles(models.RoleManager, models.RoleCashier), orderCtrl.CancelOrder)
	api.POST("/orders/:order_id/items", frontDesk, orderCtrl.AddOrderItem)
	api.PATCH("/orders/:order_id/items/:item_id", frontDesk, orderCtrl.UpdateOrderItem)
	api.DELETE("/orders/:order_id/items/:item_id", frontDesk, orderCtrl.DeleteOrderItem)
	api.GET("/orders/:order_id/payment", frontDesk, paymentCtrl.GetPayment)
	api.POST("/orders/:order_id/payment", middlewares.RequireRoles(models.RoleManager, models.RoleCashier), paymentCtrl.CreatePayment)
	receipts := api.Group("/orders/:order_id", frontDesk, middlewares.ReceiptLoggerMiddleware())
	{
		receipts.GET("/receipt", receiptCtrl.GetOrderReceipt)
		receipts.GET("/receipt.pdf", receiptCtrl.GetOrderReceiptPDF)
	}

	// NOTIFICATIONS
	api.GET("/notifications", notificationCtrl.GetAllNotifications)
	api.GET("/notifications/:notif_id", notificationCtrl.GetNotificationByID)
	api.POST("/notifications", managers, notificationCtrl.CreateNotification)
	api.DELETE("/notifications/:notif_id", managers, notificationCtrl.DeleteNotification)

	api.GET("/dashboard/stats", managers, adminCtrl.GetDashboardStats)

	return r
}
