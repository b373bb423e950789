package main

import (
	"log"
	"net/http"

	"roms_backend/internal/config"
	"roms_backend/internal/database"
	"roms_backend/internal/router"
	"roms_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	utils.InitLogger()

	cfg := config.Load()

	database.InitDB(cfg.Database)
	utils.LogInfo("Database initialized", map[string]interface{}{"host": cfg.Database.Host, "name": cfg.Database.Name})

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	router.Setup(engine, database.GetDB(), cfg)

	utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port})
	if err := engine.Run(":" + cfg.Port); err != nil {
		utils.LogError(err, "Failed to start server")
		log.Fatalf("Failed to start server: %v", err)
	}
}
