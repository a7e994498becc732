package api

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", h.Health)

	pub := r.Group("/api")
	pub.POST("/classify", h.Classify)
	pub.POST("/report", h.CreateReport)
	pub.GET("/track", h.TrackReport)

	admin := r.Group("/admin")
	admin.GET("/reports", h.ListReports)
	admin.POST("/assign/:trackingId", h.AssignReport)
	admin.POST("/remarks/:trackingId", h.UpdateRemarks)
	admin.GET("/dept-admins", h.ListDeptAdmins)
	admin.POST("/dept-admins", h.CreateDeptAdmin)

	dept := r.Group("/dept")
	dept.GET("/reports", h.DeptDashboard)
	dept.GET("/report/:trackingId", h.DeptReportDetail)
	dept.POST("/report/:trackingId", h.UpdateDeptStatus)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("http %s %s status=%d dur=%s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
