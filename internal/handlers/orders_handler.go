package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/motbungchow/go-food-orderflow/internal/apperr"
	"github.com/motbungchow/go-food-orderflow/internal/auth"
	"github.com/motbungchow/go-food-orderflow/internal/gateway"
	"github.com/motbungchow/go-food-orderflow/internal/orders"
	"github.com/motbungchow/go-food-orderflow/internal/validation"
)

// HandlerConfig groups dependencies for the orders handler.
type HandlerConfig struct {
	Service *orders.Service
	Auth    *auth.Manager
	Logger  *zap.Logger
}

// RegisterOrdersRoutes registers routes for the order API. The webhook route
// is unauthenticated (the gateway signs its deliveries instead); everything
// else requires a bearer token.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	g := r.Group("/api/orders")
	g.POST("/webhook", handleWebhook(cfg, logger))

	authed := g.Group("", auth.Middleware(cfg.Auth))
	authed.POST("", handleCreateOrder(cfg, v, logger))
	authed.POST("/verify", handleVerifyPayment(cfg, v, logger))
	authed.GET("/mine", handleMyOrders(cfg, logger))
	authed.GET("/by-restaurant", handleRestaurantOrders(cfg, logger))
}

func handleCreateOrder(cfg HandlerConfig, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		ident, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthenticated"})
			return
		}

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		items := make([]orders.CartItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, orders.CartItem{
				Name:         it.Name,
				Qty:          it.Qty,
				Price:        it.Price,
				RestaurantID: it.RestaurantID,
			})
		}

		result, err := cfg.Service.CreateOrder(ctx, orders.CreateOrderInput{
			UserID:        ident.UserID,
			CustomerName:  req.CustomerName,
			RestaurantID:  req.RestaurantID,
			Location:      req.Location,
			MapLink:       req.MapLink,
			PaymentMethod: req.PaymentMethod,
			Items:         items,
			PlatformFee:   req.PlatformFee,
			DeliveryFee:   req.DeliveryFee,
			Tip:           req.Tip,
		})
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"gatewayOrderId": result.OrderID,
			"amount":         result.Amount,
		})
	}
}

func handleVerifyPayment(cfg HandlerConfig, v *validatorv10.Validate, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.VerifyPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		if err := cfg.Service.VerifyPayment(ctx, req.GatewayOrderID, req.GatewayPaymentID, req.Signature); err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func handleWebhook(cfg HandlerConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		// Signature covers the raw bytes; read them before any parsing.
		rawBody, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
			return
		}
		signature := c.GetHeader(gateway.SignatureHeader)

		if err := cfg.Service.HandleWebhook(ctx, rawBody, signature); err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func handleMyOrders(cfg HandlerConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthenticated"})
			return
		}

		list, err := cfg.Service.ListByUser(c.Request.Context(), ident.UserID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
	}
}

func handleRestaurantOrders(cfg HandlerConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := auth.FromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthenticated"})
			return
		}
		if ident.Role != auth.RoleRestaurant || ident.RestaurantID == "" {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "restaurant access only"})
			return
		}

		list, err := cfg.Service.ListByRestaurant(c.Request.Context(), ident.RestaurantID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "orders": list})
	}
}

// writeError is the single error-mapping layer: the typed error set decides
// the status code, everything else is a 500 with the detail kept server-side.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": apperr.Message(err)})
}
