package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/Eursukkul/teetime-lifecycle/config"
	"github.com/Eursukkul/teetime-lifecycle/internal/consumer"
	"github.com/Eursukkul/teetime-lifecycle/internal/handler"
	"github.com/Eursukkul/teetime-lifecycle/internal/middleware"
	"github.com/Eursukkul/teetime-lifecycle/internal/notifier"
	"github.com/Eursukkul/teetime-lifecycle/internal/pricing"
	"github.com/Eursukkul/teetime-lifecycle/internal/repository"
	"github.com/Eursukkul/teetime-lifecycle/internal/scheduler"
	"github.com/Eursukkul/teetime-lifecycle/internal/service"
	"github.com/Eursukkul/teetime-lifecycle/pkg/database"
	"github.com/Eursukkul/teetime-lifecycle/pkg/lock"
	"github.com/Eursukkul/teetime-lifecycle/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

func main() {
	job := flag.String("job", "", "run one job ("+strings.Join(jobNames, "|")+"), print its summary and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	setupLogging(cfg.LogLevel)
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	// Notification sink
	var sink notifier.Sink = notifier.LogSink{}
	if cfg.Notifier != "log" {
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, notifier.NotificationExchange)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to RabbitMQ")
		}
		defer publisher.Close()
		sink = notifier.NewRabbitSink(publisher)
	}
	renderer, err := notifier.NewRenderer()
	if err != nil {
		logrus.WithError(err).Fatal("failed to parse notification templates")
	}

	// Delivery lock
	locker := lock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Fatal("failed to connect to Redis")
		}
		locker = lock.NewRedis(rdb, "teetime:lock:")
	}

	// Dumping rules
	rules := pricing.DefaultRules()
	if cfg.DumpingRulesFile != "" {
		rules, err = pricing.LoadRules(cfg.DumpingRulesFile)
		if err != nil {
			logrus.WithError(err).Fatal("failed to load dumping rules")
		}
	}
	evaluator := pricing.NewEvaluator(rules, loc)
	logrus.WithField("rules", len(evaluator.Rules())).Info("dumping rules loaded")

	// Repositories
	tx := repository.NewTransactor(db)
	teeTimeRepo := repository.NewTeeTimeRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	noShowRepo := repository.NewNoShowRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)

	// Services
	noShowPolicy := service.DefaultNoShowPolicy()
	noShowPolicy.GraceMinutes = cfg.NoShowGraceMinutes
	noShowPolicy.BankName = cfg.NoShowPenaltyBank
	noShowPolicy.AccountNumber = cfg.NoShowPenaltyNumber
	noShowPolicy.AccountHolder = cfg.NoShowPenaltyHolder

	notifPolicy := service.NotificationPolicy{
		MaxAttempts:          cfg.NotificationMaxAttempts,
		BatchSize:            cfg.NotificationBatchSize,
		PaymentReminderAfter: cfg.PaymentReminderAfter,
	}

	dumpingSvc := service.NewDumpingService(tx, teeTimeRepo, evaluator, loc)
	noShowSvc := service.NewNoShowService(tx, noShowRepo, bookingRepo, notifRepo, noShowPolicy, loc)
	notifSvc := service.NewNotificationService(notifRepo, bookingRepo, sink, renderer, locker, notifPolicy, loc)
	settlementSvc := service.NewSettlementService(tx, settlementRepo, bookingRepo, noShowRepo, notifRepo, service.DefaultSettlementPolicy(), loc)
	webhookSvc := service.NewWebhookService(tx, bookingRepo, teeTimeRepo, notifRepo, dumpingSvc, loc)

	jobs := scheduler.Jobs(dumpingSvc, noShowSvc, notifSvc, settlementSvc)

	if *job != "" {
		summary, err := jobs.Run(ctx, *job)
		if err != nil {
			logrus.WithError(err).WithField("job", *job).Fatal("job failed")
		}
		if err := writeSummary(os.Stdout, summary); err != nil {
			logrus.WithError(err).WithField("job", *job).Fatal("failed to write job summary")
		}
		return
	}

	// Payment events from RabbitMQ
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, consumer.PaymentExchange, consumer.PaymentQueue, []string{consumer.PaymentRoutingKey})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to RabbitMQ")
	}
	msgs, err := mqConsumer.Consume()
	if err != nil {
		logrus.WithError(err).Fatal("failed to start consuming")
	}
	consumerDone := consumer.NewPaymentConsumer(webhookSvc).Start(ctx, msgs)

	// Scheduler
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(jobs, loc)
		for _, entry := range []struct{ name, spec string }{
			{scheduler.JobDumping, cfg.DumpingCron},
			{scheduler.JobNoShow, cfg.NoShowCron},
			{scheduler.JobReminders, cfg.ReminderCron},
			{scheduler.JobDispatch, cfg.DispatchCron},
			{scheduler.JobSettlement, cfg.SettlementCron},
		} {
			if err := sched.Schedule(entry.name, entry.spec); err != nil {
				logrus.WithError(err).Fatal("invalid cron spec")
			}
		}
		sched.Start()
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()
	e.Use(echoMw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "teetime-lifecycle"})
	})

	api := e.Group("/api/v1")
	handler.NewWebhookHandler(webhookSvc).RegisterRoutes(api.Group("/webhooks"))
	handler.NewCronHandler(jobs).RegisterRoutes(api.Group("/cron"))
	handler.NewNoShowHandler(noShowSvc, loc).RegisterRoutes(api.Group("/noshows"))
	handler.NewSettlementHandler(settlementSvc).RegisterRoutes(api.Group("/settlements"))
	handler.NewNotificationHandler(notifSvc).RegisterRoutes(api.Group("/notifications"))

	go func() {
		logrus.WithField("port", cfg.ServerPort).Info("tee-time lifecycle service starting")
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	mqConsumer.Close()
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logrus.Warn("payment consumer did not drain in time")
	}
}

var jobNames = []string{
	scheduler.JobDumping,
	scheduler.JobNoShow,
	scheduler.JobReminders,
	scheduler.JobDispatch,
	scheduler.JobSettlement,
}

// writeSummary prints a job summary as indented JSON.
func writeSummary(w io.Writer, summary any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	logrus.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
