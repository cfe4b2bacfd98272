package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ribit-tech/ribit-backend/internal/database"
	"github.com/ribit-tech/ribit-backend/internal/handlers"
	"github.com/ribit-tech/ribit-backend/internal/middleware"
	"github.com/ribit-tech/ribit-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := services.InitRedis(); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}

	// Storage (S3 or local fallback)
	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// WebSocket hub for live tracking fan-out
	hub := services.NewHub()
	go hub.Run()

	bookings := services.NewBookingService(db)
	catalog := services.NewCatalogService(db)
	tracking := services.NewTrackingService(db, hub)
	reviews := services.NewReviewService(db)
	payments := services.NewPaymentService()
	if payments.TestMode() {
		log.Println("WARNING: payments test mode enabled, bookings skip payment verification")
	}

	directions, err := services.NewDirectionsService()
	if err != nil {
		log.Fatalf("Failed to initialize directions client: %v", err)
	}

	// Sweep expired tracking sessions hourly
	go tracking.RunJanitor(context.Background(), time.Hour)

	r := gin.Default()
	r.Use(middleware.MetricsMiddleware())

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	// Serve locally stored uploads when S3 is not configured
	if !services.IsUsingS3() {
		r.Static("/uploads", "/app/uploads")
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public live-tracking stream for share-link viewers
	r.GET("/ws/tracking/:token", handlers.TrackingWebSocket(hub, tracking))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(db))
			auth.POST("/login", handlers.Login(db))
		}

		cities := api.Group("/cities")
		{
			cities.GET("", handlers.GetCities(db))
			cities.GET("/:id/points", handlers.GetCityPoints(db))
		}

		// Public resolver behind shared tracking links
		api.GET("/tracking/resolve/:token", handlers.ResolveTracking(tracking))

		api.GET("/directions/route", handlers.GetRoute(directions))

		pricing := api.Group("/pricing")
		{
			pricing.GET("/quote", handlers.GetQuote())
			pricing.GET("/breakdown/driver", handlers.GetDriverBreakdown())
			pricing.GET("/fees", handlers.GetFees())
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile(db))
				users.PUT("/profile", handlers.UpdateProfile(db))
				users.POST("/profile/avatar", handlers.UploadAvatar(db))
				users.POST("/driver/license", handlers.UploadDriverLicense(db))
			}

			protected.GET("/drivers/:id/rating", handlers.GetDriverRating(db, reviews))

			rides := protected.Group("/rides")
			{
				rides.POST("", handlers.CreateRide(db))
				rides.GET("/active", handlers.GetActiveRides(catalog))
				rides.GET("/posted", handlers.GetPostedRides(catalog))
				rides.DELETE("/:id", handlers.CancelRide(bookings))
				rides.POST("/:id/hide", handlers.HideRide(catalog))
			}

			bookingRoutes := protected.Group("/bookings")
			{
				bookingRoutes.POST("", handlers.CreateBooking(db, bookings, payments))
				bookingRoutes.GET("", handlers.GetBookings(catalog))
				bookingRoutes.GET("/:id", handlers.GetBookingDetail(bookings))
				bookingRoutes.POST("/payment-intent", handlers.CreatePaymentIntent(db, payments))
				bookingRoutes.POST("/:id/verify-pickup", handlers.VerifyPickup(bookings))
				bookingRoutes.POST("/:id/cancel", handlers.CancelBooking(bookings))
				bookingRoutes.POST("/:id/hide", handlers.HideBooking(bookings))
				bookingRoutes.GET("/:id/review-eligibility", handlers.GetReviewEligibility(reviews))
				bookingRoutes.POST("/:id/review", handlers.SubmitReview(reviews))
			}

			trackingRoutes := protected.Group("/tracking")
			{
				trackingRoutes.POST("/start", handlers.StartTracking(db, tracking))
				trackingRoutes.GET("/active", handlers.GetActiveTracking(tracking))
				trackingRoutes.POST("/:id/stop", handlers.StopTracking(tracking))
				trackingRoutes.POST("/:id/coordinates", handlers.AddTrackingCoordinate(tracking))
				trackingRoutes.GET("/:id/share-url", handlers.GetShareURL(db))
			}
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
