package api

import (
	stdhttp "net/http"

	intconfig "github.com/muhammed-shimlal/Kallayi-car-spa/internal/config"
	h "github.com/muhammed-shimlal/Kallayi-car-spa/internal/http/handlers"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/http/middleware"
	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Staff roles allowed to move bookings through their lifecycle.
var (
	dispatchRoles = []string{"admin", "manager"}
	statusRoles   = []string{"admin", "manager", "washer"}
)

func NewRouter(env intconfig.Env, api h.Handler) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		gin.Recovery(),
		middleware.CORS(env.AllowedOrigins()),
		middleware.RateLimit(env.MaxRequestsPerMin),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.Logger().Warn("failed to set trusted proxies", zap.Error(err))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"code":   "not_found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	authOn := env.JWTSecret != ""
	auth := middleware.Auth(env.JWTSecret)

	g := r.Group("/api")
	{
		g.GET("/health", h.Health)
		g.GET("/db-check", h.DBCheck)
		g.GET("/routes", h.Routes)

		bookings := g.Group("/bookings")
		bookings.POST("", api.CreateBooking)
		bookings.GET("/:id", api.GetBooking)
		bookings.PATCH("/:id", api.UpdateBooking)
		bookings.GET("/:id/fulfillment", api.GetFulfillment)
		bookings.POST("/:id/assign", auth, middleware.RequireRoles(authOn, dispatchRoles...), api.AssignTechnician)
		bookings.PATCH("/:id/status", auth, middleware.RequireRoles(authOn, statusRoles...), api.UpdateStatus)

		g.GET("/available-slots", api.AvailableSlots)
		g.GET("/calendar", api.Calendar)

		technicians := g.Group("/technicians")
		technicians.GET("", api.ListTechnicians)
		technicians.GET("/:id/jobs", api.TechnicianJobs)
		technicians.GET("/:id/payroll", auth, middleware.RequireRoles(authOn, dispatchRoles...), api.TechnicianPayroll)

		packages := g.Group("/packages")
		packages.GET("", api.ListPackages)
		packages.GET("/:id", api.GetPackage)
	}

	h.SetRouter(r)
	return r
}
