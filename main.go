package main

import (
	"context"
	"log"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/config"
	"messaging-service/internal/crisis"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/pipeline"
	"messaging-service/internal/presence"
	"messaging-service/internal/push"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/uploads"
	"messaging-service/internal/ws"
)

const serviceName = "messaging-service"

func main() {
	cfg := config.Load()

	shutdownTracing, err := telemetry.Setup(context.Background(), serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	var store presence.Store
	if cfg.RedisAddr != "" {
		store = presence.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	} else {
		log.Printf("REDIS_ADDR not set, using in-memory presence store")
		store = presence.NewMemoryStore()
	}

	events := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer events.Close()

	var uploader uploads.Uploader = uploads.Disabled{}
	if cfg.CloudinaryURL != "" {
		cld, err := uploads.NewCloudinaryUploader(cfg.CloudinaryURL, serviceName)
		if err != nil {
			log.Fatalf("failed to init uploader: %v", err)
		}
		uploader = cld
	} else {
		log.Printf("CLOUDINARY_URL not set, attachment uploads disabled")
	}

	vapidPublic, vapidPrivate := cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey
	if vapidPublic == "" || vapidPrivate == "" {
		// Ephemeral keys keep push working in dev; subscriptions made
		// against them die on restart.
		vapidPrivate, vapidPublic, err = webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		log.Printf("VAPID keys not set, generated ephemeral pair")
	}

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	pushRepo := repositories.NewPushRepo(database)

	hub := ws.NewHub()
	tracker := presence.NewTracker(store, hub, cfg.PresenceWindow)
	typing := presence.NewTypingSignal(store, hub, cfg.TypingExpiry)

	scanner := crisis.NewDefaultScanner(cfg.CrisisKeywords)
	alerts := crisis.NewEmitter(events, "crisis_alerts", serviceName, cfg.Environment)
	notifier := push.NewNotifier(pushRepo, vapidPublic, vapidPrivate, cfg.PushSubscriber)

	p := pipeline.New(conversationRepo, messageRepo, uploader, scanner, alerts, hub, tracker, notifier)

	conversationHandler := handlers.NewConversationHandler(conversationRepo)
	messageHandler := handlers.NewMessageHandler(p, conversationRepo)
	presenceHandler := handlers.NewPresenceHandler(tracker, typing)
	pushHandler := handlers.NewPushHandler(pushRepo, vapidPublic)
	socketHandler := ws.NewSocketHandler(hub, conversationRepo, cfg.JWTSecret, events)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/push/vapid-key", pushHandler.VAPIDKey)

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	api := router.Group("/", auth)
	{
		api.GET("/conversations", conversationHandler.List)
		api.POST("/conversations/start", conversationHandler.Start)
		api.GET("/conversations/resolve", conversationHandler.Resolve)

		api.POST("/messages", messageHandler.Send)
		api.GET("/conversations/:conversation_id/messages", messageHandler.History)
		api.GET("/conversations/:conversation_id/messages/search", messageHandler.Search)
		api.POST("/conversations/:conversation_id/read", messageHandler.ReadAll)
		api.PATCH("/messages/:message_id", messageHandler.Edit)
		api.DELETE("/messages/:message_id", messageHandler.Delete)
		api.POST("/messages/:message_id/delivered", messageHandler.MarkDelivered)
		api.POST("/messages/:message_id/read", messageHandler.MarkRead)
		api.PUT("/messages/:message_id/reaction", messageHandler.AddReaction)
		api.DELETE("/messages/:message_id/reaction", messageHandler.RemoveReaction)

		api.POST("/presence/heartbeat", presenceHandler.Heartbeat)
		api.GET("/presence/:user_id", presenceHandler.GetPresence)
		api.POST("/conversations/:conversation_id/typing", presenceHandler.SetTyping)
		api.GET("/conversations/:conversation_id/typing/:user_id", presenceHandler.GetTyping)

		api.POST("/push/subscriptions", pushHandler.Subscribe)
		api.DELETE("/push/subscriptions", pushHandler.Unsubscribe)
	}

	router.GET("/ws/conversations/:conversation_id", socketHandler.HandleConversation)
	router.GET("/ws/presence/:user_id", socketHandler.HandlePresence)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
