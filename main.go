// api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"validateiq/api/database"
	"validateiq/api/handlers"
	"validateiq/api/middleware"
	"validateiq/api/store"
)

const frontendDist = "./frontend/dist"

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Initialize PostgreSQL Database (visitors, page views, signups) ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- Initialize ClickHouse Database (interaction events) ---
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSchema()
	if err := dbClient.EnsureSchema(schemaCtx); err != nil {
		log.Fatalf("Failed to ensure PostgreSQL schema: %v", err)
	}
	if err := chClient.EnsureSchema(schemaCtx); err != nil {
		log.Fatalf("Failed to ensure ClickHouse schema: %v", err)
	}

	// --- Initialize Redis (optional stats cache) ---
	redisClient, err := database.NewRedisClient()
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	statsCache := store.NewStatsCache(redisClient, 30*time.Second)

	// --- Initialize Stores ---
	visitorStore := store.NewVisitorStore(dbClient.DB)
	pageViewStore := store.NewPageViewStore(dbClient.DB)
	signupStore := store.NewSignupStore(dbClient.DB)
	eventStore := store.NewEventStore(chClient)

	// --- Initialize Handlers ---
	analyticsHandlers := handlers.NewAnalyticsHandlers(visitorStore, pageViewStore, eventStore)
	signupHandlers := handlers.NewSignupHandlers(signupStore, eventStore, statsCache)
	statsHandlers := handlers.NewStatsHandlers(visitorStore, pageViewStore, eventStore, signupStore, statsCache)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.Metrics())

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		analytics := api.Group("/analytics")
		{
			analytics.POST("/init", analyticsHandlers.InitVisitor)
			analytics.POST("/event", analyticsHandlers.TrackEvent)
			analytics.POST("/pageview/update", analyticsHandlers.UpdatePageView)
			analytics.POST("/beacon", analyticsHandlers.Beacon)
		}

		signups := api.Group("/signups")
		{
			signups.POST("/", signupHandlers.CreateSignup)
			signups.GET("/count", signupHandlers.GetSignupCount)
		}

		api.GET("/stats/dashboard", statsHandlers.GetDashboardStats)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve the built landing page when it is present; unknown paths fall
	// back to index.html so client-side routing works.
	if _, err := os.Stat(frontendDist); err == nil {
		r.Static("/assets", filepath.Join(frontendDist, "assets"))
		r.StaticFile("/", filepath.Join(frontendDist, "index.html"))
		r.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
				return
			}
			c.File(filepath.Join(frontendDist, "index.html"))
		})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("ValidateIQ API server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ValidateIQ API server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
