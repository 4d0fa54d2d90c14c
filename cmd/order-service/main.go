// cmd/order-service/main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"omnia/internal/pkg/config"
	"omnia/internal/pkg/mq"
	"omnia/internal/pkg/tracing"
	"omnia/internal/service/order/application"
	"omnia/internal/service/order/infrastructure"
	"omnia/internal/service/order/interfaces"
)

// main 是组装根：创建并连接所有依赖项，然后启动应用。
// 业务逻辑全部在 internal/service/order 下，这里只做接线。
func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setupLogging(cfg.Log)

	// 1. 追踪
	tp, err := tracing.InitTracerProvider(cfg.Service.Name, cfg.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	tracer := otel.Tracer(cfg.Service.Name)

	// 2. 存储
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// 重复键需要翻译成 gorm.ErrDuplicatedKey，仓储靠它识别插入冲突
		TranslateError: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := infrastructure.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// 3. 消息通道
	eventWriter := mq.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.EventTopic)
	defer eventWriter.Close()
	commandReader := mq.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.CommandTopic, cfg.Kafka.GroupID)

	// 4. 指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewMetrics(registry)

	// 5. 组装服务
	orderRepo := infrastructure.NewGormOrderRepository(db)
	numbers := infrastructure.NewRedisNumberGenerator(redisClient, "")
	publisher := infrastructure.NewKafkaEventPublisher(eventWriter, metrics)
	appSvc := application.NewOrderApplicationService(orderRepo, numbers, publisher, tracer)
	commandHandler := interfaces.NewOrderCommandHandler(commandReader, appSvc, metrics)

	// 6. 运行：命令消费循环 + 健康/指标端口，信号触发优雅关停
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: cfg.Service.HTTPAddr, Handler: mux}

	g, gCtx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Service.HTTPAddr).Msg("health and metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		commandHandler.Start(gCtx)
		<-gCtx.Done()
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("shutting down order service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		commandHandler.Stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down http server")
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("order service exited with error")
	}
	log.Info().Msg("order service gracefully shut down")
}

// setupLogging 配置全局 zerolog：级别来自配置，本地开发可切换控制台输出。
func setupLogging(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
