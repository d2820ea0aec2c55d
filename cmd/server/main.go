package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/movie-ticket-booking/internal/catalog"
	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/database"
	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/logger"
	"github.com/iliyamo/movie-ticket-booking/internal/mailer"
	"github.com/iliyamo/movie-ticket-booking/internal/payment"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/router"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, response cache and rate limiting disabled")
	}

	movieRepo := repository.NewMovieRepo(db)
	showRepo := repository.NewShowRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	userRepo := repository.NewUserRepo(db)

	catalogClient := catalog.New(cfg.CatalogBaseURL, cfg.CatalogAPIKey)
	checkoutClient := payment.New(cfg.CheckoutAPIKey)
	mail := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SenderMail)
	if !mail.Enabled() {
		log.Warn("smtp credentials missing, notification mail disabled")
	}

	brokerURL := queue.BrokerURL()
	publisher := queue.NewPublisher(brokerURL, cfg.BookingTimeout, log)

	bookingSvc := service.NewBookingService(
		bookingRepo, showRepo, movieRepo, checkoutClient, publisher,
		cfg.SessionExpiry, cfg.ClientOrigin, log,
	)
	catalogSvc := service.NewCatalogService(movieRepo, showRepo, catalogClient, publisher, log)
	notifySvc := service.NewNotificationService(bookingRepo, showRepo, movieRepo, userRepo, mail, log)
	sweeper := service.NewRetentionSweeper(bookingRepo, showRepo, log)

	// Background workers: the expiry reaper, the two mail consumers and
	// the retention sweep. Each consumer maintains its own connection
	// and reconnects on broker outages.
	go queue.Consume(ctx, brokerURL, queue.BookingExpired, func(ch *amqp.Channel) error {
		return queue.DeclareDelay(ch, cfg.BookingTimeout)
	}, bookingSvc.HandleExpiredMessage, log)
	go queue.Consume(ctx, brokerURL, queue.BookingConfirmed,
		queue.DeclareQueue(queue.BookingConfirmed), notifySvc.HandleBookingConfirmed, log)
	go queue.Consume(ctx, brokerURL, queue.ShowAdded,
		queue.DeclareQueue(queue.ShowAdded), notifySvc.HandleShowAdded, log)
	go sweeper.Run(ctx, 24*time.Hour)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	router.RegisterRoutes(e)
	router.RegisterShows(e, handler.NewShowHandler(showRepo, movieRepo, catalogClient, catalogSvc), userRepo, cfg.JWTSecret, rdb)
	router.RegisterBookings(e, handler.NewBookingHandler(bookingSvc, showRepo), cfg.JWTSecret, rdb)
	router.RegisterUsers(e, handler.NewUserHandler(bookingRepo, userRepo, movieRepo), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(bookingRepo, showRepo, userRepo), userRepo, cfg.JWTSecret)
	router.RegisterWebhooks(e, handler.NewWebhookHandler(bookingSvc, userRepo, cfg.CheckoutWebhookSecret, cfg.IdentityWebhookSecret, log))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal("server start failed", zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
}
