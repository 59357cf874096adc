package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"sheetsync-api/internal/cache"
	"sheetsync-api/internal/config"
	"sheetsync-api/internal/handler"
	"sheetsync-api/internal/repository"
	"sheetsync-api/internal/router"
	"sheetsync-api/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting sheetsync API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize the character store based on config
	var characterRepo repository.CharacterRepository
	switch cfg.Store.Type {
	case "mysql":
		mysqlRepo, err := repository.NewMySQLCharacterRepository(cfg.Store.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL store: %v", err)
		}
		defer mysqlRepo.Close()
		characterRepo = mysqlRepo
		log.Println("MySQL character store initialized")
	default: // sqlite
		dbPath := repository.DatabasePath(cfg.Store.Dir, cfg.Store.Name)
		if dbPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				log.Fatalf("Failed to create store directory: %v", err)
			}
		}
		sqliteRepo, err := repository.NewSQLiteCharacterRepository(dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite store: %v", err)
		}
		defer sqliteRepo.Close()
		characterRepo = sqliteRepo
		log.Println("SQLite character store initialized")
	}

	// Initialize cache based on config
	var characterCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisCacheConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis cache unavailable, running uncached: %v", err)
		} else {
			defer redisCache.Close()
			characterCache = redisCache
			log.Println("Redis character cache initialized")
		}
	case "none":
		log.Println("Character cache disabled")
	default: // memory
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		characterCache = memCache
		log.Println("Memory character cache initialized")
	}

	// Initialize the character service
	var characterService *service.CharacterService
	if characterCache != nil {
		characterService = service.NewCharacterServiceWithCache(characterRepo, characterCache, cfg.Cache.TTL)
	} else {
		characterService = service.NewCharacterService(characterRepo)
	}
	characterService.SetMaxDocumentBytes(cfg.Store.MaxDocumentBytes)

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Version, func(ctx context.Context) error {
		_, err := characterService.Stats(ctx)
		return err
	})
	characterHandler := handler.NewCharacterHandler(characterService)
	objectHandler := handler.NewObjectHandler(characterService)
	adminHandler := handler.NewAdminHandler(characterService, cfg.Store.Type)

	// Create router
	r := router.New(router.Config{
		Handler:          healthHandler,
		CharacterHandler: characterHandler,
		ObjectHandler:    objectHandler,
		AdminHandler:     adminHandler,
		AllowedOrigins:   cfg.App.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
