package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/arefiev/storefront/pkg/middleware/auth"
)

type Deps struct {
	CartHandler    *CartHTTP
	OrderHandler   *OrderHTTP
	PaymentHandler *PaymentHTTP
	ProductHandler *ProductHTTP
	JWTSecret      []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)

	products := e.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/search", d.ProductHandler.SearchProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	admin := e.Group("/admin", authMW.RequireAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	cart := e.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.DELETE("/:lineId", d.CartHandler.RemoveItem)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("/myorders", d.OrderHandler.MyOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PUT("/:id/pay", d.OrderHandler.MarkPaid)

	ordersAdmin := e.Group("/orders", authMW.RequireAdmin)
	ordersAdmin.GET("", d.OrderHandler.ListOrders)
	ordersAdmin.PUT("/:id/deliver", d.OrderHandler.MarkDelivered)
	ordersAdmin.DELETE("/:id", d.OrderHandler.DeleteOrder)

	payments := e.Group("", authMW.RequireAuth)
	payments.POST("/payments", d.PaymentHandler.RecordPayment)
	payments.POST("/create-payment-intent", d.PaymentHandler.CreatePaymentIntent)
}
