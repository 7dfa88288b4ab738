package httpserver

import (
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func (srv *HTTPServer) mapHandlers() {
	srv.registerMiddlewares()

	srv.gin.GET("/health", srv.healthCheck)

	v1 := srv.gin.Group("/v1")
	v1.POST("/generate", srv.generate)
	v1.POST("/breaker/disable", srv.disableBreaker)
	v1.POST("/breaker/enable", srv.enableBreaker)
}

func (srv *HTTPServer) registerMiddlewares() {
	srv.gin.Use(otelgin.Middleware(srv.serviceName))
	srv.gin.Use(RequestID())
	srv.gin.Use(RequestLogger(srv.l))
	// Recovery stays after RequestLogger so recovered panics are logged.
	srv.gin.Use(Recovery(srv.l))
}
