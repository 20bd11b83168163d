package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"murmur/api"
	"murmur/auth"
	"murmur/common"
	"murmur/database"
	"murmur/mutations"
	"murmur/pubsub"
	"murmur/query"
	"murmur/storage"
	"murmur/token"
)

func main() {
	cfg := common.LoadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	db := common.ConnectDb(cfg.DBFile)
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	store := storage.NewGateway(db)
	tokens := token.NewService([]byte(cfg.JWTSecret))
	guard := auth.NewGuard(tokens)
	broker := pubsub.NewBroker()

	mutationModule := mutations.NewModule(store, guard, tokens, broker)
	queryModule := query.NewModule(store, guard)

	router := gin.Default()

	apiModule := api.NewAPIModule(mutationModule, queryModule, broker)
	apiModule.RegisterRoutes(router)

	log.Printf("Starting server on port %s...", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
