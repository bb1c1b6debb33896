package main

import (
	"context"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/driftchat/drift/config"
	"github.com/driftchat/drift/internal/api"
	"github.com/driftchat/drift/internal/consumer"
	"github.com/driftchat/drift/internal/fanout"
	"github.com/driftchat/drift/internal/handler"
	"github.com/driftchat/drift/internal/notify"
	"github.com/driftchat/drift/internal/repository"
	"github.com/driftchat/drift/internal/service"
	"github.com/driftchat/drift/internal/storage"
	"github.com/driftchat/drift/internal/utils"
	"github.com/driftchat/drift/internal/ws"
	jwtmw "github.com/driftchat/drift/middleware/jwt"
	logger "github.com/driftchat/drift/middleware/log"
	"github.com/driftchat/drift/pkg/mq"
	"github.com/driftchat/drift/utils/consistenthash"
	"github.com/driftchat/drift/utils/ratelimit"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Close()

	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	db, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		zlog.Fatal("failed to init postgres", zap.Error(err))
	}

	redisClient, err := storage.InitRedis(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, cfg.Redis.MinIdleConns)
	if err != nil {
		zlog.Fatal("failed to init redis", zap.Error(err))
	}

	// Kafka is optional: without brokers, bot mentions are silently skipped.
	var kafkaProducer *mq.KafkaProducer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = mq.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			zlog.Warn("kafka unavailable, bot notifications disabled", zap.Error(err))
			kafkaProducer = nil
		} else {
			defer kafkaProducer.Close()
		}
	}

	pool := utils.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	pool.Start()
	defer pool.Stop()

	channelRepo := repository.NewChannelRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	lastReadRepo := repository.NewLastReadRepository(db)

	fan := fanout.New(fanout.NewRedisPublisher(redisClient))
	var producer notify.Producer
	if kafkaProducer != nil {
		producer = kafkaProducer
	}
	notifier := notify.NewBotNotifier(producer, cfg.Bot.Trigger)

	channelService := service.NewChannelService(channelRepo)
	messageService := service.NewMessageService(messageRepo, channelRepo, lastReadRepo, channelService, fan, notifier, pool, zlog)
	lastReadService := service.NewLastReadService(lastReadRepo, channelService)

	ring := consistenthash.New(128, nil)
	for node := range cfg.Gateway.Nodes {
		ring.Add(node)
	}
	hub := ws.NewHub(ring, cfg.Gateway.NodeID)
	go hub.Run()

	bridge := consumer.NewBridge(redisClient, hub, zlog)
	go func() {
		if err := bridge.Run(context.Background()); err != nil && err != context.Canceled {
			zlog.Error("fanout bridge stopped", zap.Error(err))
		}
	}()

	tokens := jwtmw.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	limiter := ratelimit.NewTokenBucketLimiter(redisClient, zlog.Logger, true)

	messageHandler := handler.NewMessageHandler(messageService)
	readHandler := handler.NewReadHandler(lastReadService)
	wsHandler := ws.NewHandler(hub, channelRepo, zlog)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())

	api.RegisterRoutes(r, cfg, tokens, limiter, messageHandler, readHandler, wsHandler)

	zlog.Info("starting server", zap.Int("port", cfg.Server.Port))
	if err := r.Run(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
