package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pawansuthar01/Qresto-sub000/controllers"
	"github.com/pawansuthar01/Qresto-sub000/middlewares"
	"github.com/pawansuthar01/Qresto-sub000/realtime"
	"github.com/pawansuthar01/Qresto-sub000/services"
)

func SetupRouter(db *gorm.DB, hub *realtime.Hub) *gin.Engine {
	r := gin.Default()

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	// Core services
	gate := services.RoleGate{}
	coordinator := services.NewOccupancyCoordinator(db, hub, gate)
	engine := services.NewOrderEngine(db, hub, gate)

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(db)
	tableCtrl := controllers.NewTableController(db, coordinator)
	occupancyCtrl := controllers.NewOccupancyController(coordinator)
	categoryCtrl := controllers.NewMenuCategoryController(db)
	menuCtrl := controllers.NewMenuController(db, hub)
	orderCtrl := controllers.NewOrderController(db, engine)
	realtimeCtrl := controllers.NewRealtimeController(db, hub)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Rate limiter untuk login/register
	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// -- GUEST (tanpa auth, pakai session key) --
	r.GET("/categories", categoryCtrl.GetAllCategories)
	r.GET("/menus", menuCtrl.GetAllMenus)
	r.GET("/menus/:menu_id", menuCtrl.GetMenuByID)

	// Table occupancy
	r.POST("/tables/:table_id/join", occupancyCtrl.JoinTable)
	r.GET("/tables/:table_id/occupancy", occupancyCtrl.GetOccupancy)
	r.POST("/sessions/:session_key/leave", occupancyCtrl.LeaveTable)
	r.POST("/sessions/:session_key/heartbeat", occupancyCtrl.Heartbeat)

	// Orders dari guest device
	r.POST("/tables/:table_id/orders", orderCtrl.CreateOrder)
	r.GET("/tables/:table_id/orders", orderCtrl.GetTableOrders)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	// Guest realtime (table room)
	r.GET("/ws/tables/:table_id", realtimeCtrl.GuestSocket)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware())

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/logout", userCtrl.Logout)

	// TABLES (staff/admin)
	auth.GET("/tables", tableCtrl.GetAllTables)
	auth.POST("/tables", middlewares.RequireRole("staff"), tableCtrl.CreateTable)
	auth.GET("/tables/:table_id", tableCtrl.GetTableByID)
	auth.PATCH("/tables/:table_id", middlewares.RequireRole("staff"), tableCtrl.UpdateTable)
	auth.POST("/tables/:table_id/reset", occupancyCtrl.ResetTable)

	// MENU CATEGORIES (staff/admin)
	auth.POST("/categories", middlewares.RequireRole("staff"), categoryCtrl.CreateCategory)
	auth.PATCH("/categories/:cat_id", middlewares.RequireRole("staff"), categoryCtrl.UpdateCategory)
	auth.DELETE("/categories/:cat_id", middlewares.RequireRole("staff"), categoryCtrl.DeleteCategory)

	// MENUS (staff/admin)
	auth.POST("/menus", middlewares.RequireRole("staff"), menuCtrl.CreateMenu)
	auth.PATCH("/menus/:menu_id", middlewares.RequireRole("staff"), menuCtrl.UpdateMenu)

	// ORDERS (staff/chef/admin)
	auth.GET("/orders", orderCtrl.GetAllOrders)
	auth.GET("/kitchen/board", orderCtrl.GetBoard)
	auth.POST("/orders", middlewares.RequireRole("staff"), orderCtrl.CreateStaffOrder)
	auth.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	auth.PATCH("/orders/:order_id/status", orderCtrl.TransitionOrder)

	// Staff realtime (restaurant room)
	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("/staff", realtimeCtrl.StaffSocket)
	}

	return r
}
