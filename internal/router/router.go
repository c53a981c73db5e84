package router

import (
	"github.com/artwall/internal/handler"
	"github.com/gin-gonic/gin"
)

// Setup 配置 Gin 引擎和路由。
func Setup(api *handler.API, uploadDir, uploadURLPath string) *gin.Engine {
	r := gin.Default()

	// 上传图片的静态文件服务
	r.Static(uploadURLPath, uploadDir)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/submit-art", api.SubmitArt)
		apiGroup.GET("/gallery", api.GetGallery)
		apiGroup.GET("/health", api.HealthCheck)

		admin := apiGroup.Group("/admin")
		{
			admin.GET("/submissions", api.GetPendingSubmissions)
			admin.POST("/approve/:id", api.ApproveSubmission)
			admin.POST("/reject/:id", api.RejectSubmission)
			admin.POST("/add-from-telegram", api.AddFromTelegram)
			admin.POST("/telegram-sync", api.TriggerTelegramSync)
			admin.GET("/telegram-status", api.GetTelegramStatus)
		}
	}

	return r
}
