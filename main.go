package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"community-chat-service/internal/auth"
	"community-chat-service/internal/chat"
	"community-chat-service/internal/config"
	"community-chat-service/internal/db"
	"community-chat-service/internal/handlers"
	"community-chat-service/internal/middleware"
	"community-chat-service/internal/observability"
	"community-chat-service/internal/rabbitmq"
	"community-chat-service/internal/ratelimit"
	"community-chat-service/internal/repositories"
	"community-chat-service/internal/telemetry"
	"community-chat-service/internal/ws"
)

const serviceName = "community-chat-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracing(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.community", serviceName, cfg.Environment)

	membershipRepo := repositories.NewMembershipRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)

	limiter := ratelimit.New(cfg.RedisAddr, cfg.RateLimit, cfg.RateLimitWindow)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	registry := chat.NewRegistry()
	presence := chat.NewPresence(cfg.PresenceDebounce)
	defer presence.Close()
	typing := chat.NewTypingBus(registry, cfg.TypingTTL)
	defer typing.Close()
	pipeline := chat.NewPipeline(registry, membershipRepo, messageRepo, limiter, auditEmitter, cfg.MaxContentBytes)
	reactions := chat.NewReactions(registry, membershipRepo, messageRepo, reactionRepo)

	gateway := ws.NewGateway(registry, pipeline, presence, typing, reactions, membershipRepo, verifier, cfg.IdleTimeout, cfg.SendBuffer)
	historyHandler := handlers.NewHistoryHandler(membershipRepo, messageRepo, reactionRepo, presence)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/communities/:community_id/channels/:channel_id/messages", authMiddleware, historyHandler.GetChannelMessages)
	router.GET("/communities/:community_id/presence", authMiddleware, historyHandler.GetPresence)
	router.GET("/ws/communities/:community_id", gateway.Handle)

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
