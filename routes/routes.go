package routes

import (
	"net/http"
	"time"

	"agendazap/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the handler sets the router wires up.
type HandlerBundle struct {
	Webhook *handlers.WebhookHandler
	Payment *handlers.PaymentHandler
	Health  *handlers.HealthHandler
}

// RegisterWebhookRoutes registers the inbound message endpoints.
func RegisterWebhookRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.POST("/waha/webhook", hb.Webhook.HandleBridgeWebhook)
	r.POST("/webhook/:tenant", hb.Webhook.HandleTenantWebhook)
}

// RegisterPaymentRoutes registers the payment provider endpoints.
func RegisterPaymentRoutes(r *gin.Engine, hb *HandlerBundle) {
	mp := r.Group("/mp")
	{
		mp.GET("/webhook", hb.Payment.HandleWebhookProbe)
		mp.HEAD("/webhook", hb.Payment.HandleWebhookProbe)
		mp.POST("/webhook", hb.Payment.HandleGenericWebhook)

		mp.GET("/:tenant/webhook", hb.Payment.HandleWebhookProbe)
		mp.HEAD("/:tenant/webhook", hb.Payment.HandleWebhookProbe)
		mp.POST("/:tenant/webhook", hb.Payment.HandleTenantWebhook)

		mp.POST("/:tenant/pix", hb.Payment.HandleCreatePix)
	}
}

// RegisterHealthRoutes registers the index and liveness endpoints.
func RegisterHealthRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.GET("/", hb.Health.HandleIndex)
	r.GET("/health", hb.Health.HandleHealth)
}

// CORSMiddleware returns the CORS policy for the gateway. Webhook callers are
// servers, not browsers, so the policy stays permissive.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodHead},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Empresa", "x-signature"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

// RegisterAll wires every route group.
func RegisterAll(r *gin.Engine, hb *HandlerBundle) {
	RegisterHealthRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
}
