package http

import (
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/observability"
)

// RouterDeps are the collaborators of NewRouter. Metrics and Ping may be nil.
type RouterDeps struct {
	Accounts  AccountService
	Validator TokenValidator
	Metrics   *observability.Metrics
	Ping      Pinger
	Logger    logging.Logger
}

// NewRouter builds the gin engine with every route and middleware attached.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(d.Logger), AccessLog(d.Logger))
	if d.Metrics != nil {
		r.Use(Metrics(d.Metrics))
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	r.GET("/health", Health(d.Ping))

	h := NewHandler(d.Accounts, d.Logger)

	api := r.Group("/api/auth")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)

	protected := api.Group("")
	protected.Use(BearerAuth(d.Validator, d.Metrics))
	protected.GET("/profile", h.Profile)
	protected.POST("/logout", h.Logout)

	return r
}
