package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pulsehub/pulsehub/internal/handlers"
)

func registerHealthRoutes(engine *gin.Engine, db *gorm.DB) {
	h := handlers.NewHealthHandler(db)
	engine.GET("/health", h.Health)
}
