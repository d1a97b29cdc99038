package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/lgndcraft2/ledger/internal/audit"
	"github.com/lgndcraft2/ledger/internal/auth"
	"github.com/lgndcraft2/ledger/internal/config"
	"github.com/lgndcraft2/ledger/internal/events"
	apphttp "github.com/lgndcraft2/ledger/internal/http"
	"github.com/lgndcraft2/ledger/internal/logging"
	"github.com/lgndcraft2/ledger/internal/otp"
	"github.com/lgndcraft2/ledger/internal/router"
	"github.com/lgndcraft2/ledger/internal/storage"
	"github.com/lgndcraft2/ledger/internal/transactions"
	"github.com/lgndcraft2/ledger/internal/whatsapp"
)

func main() {
	config.LoadDotenv()
	cfg := config.LoadServer()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Console: cfg.LogConsole, Service: "ledger-api"})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logging.Component(log, "events"))
		if err != nil {
			log.Fatal().Err(err).Msg("connect AMQP")
		}
		defer client.Close()
		publisher = client
	} else {
		log.Info().Msg("AMQP_URL not set, transaction events disabled")
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	users := auth.NewUsers(pool)
	codes := otp.NewService(
		otp.NewPGStore(pool),
		otpSender(cfg, log),
		cfg.OTPTTL,
		cfg.OTPMaxAttempts,
		cfg.OTPDevCode,
		logging.Component(log, "otp"),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: apphttp.ErrorHandler(log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(router.CorsMiddleware(cfg.CORSOrigin))
	app.Use(logging.RequestLogger(logging.Component(log, "http")))

	r := &router.Router{
		AuthHandler: &apphttp.AuthHandler{
			Codes:  codes,
			Users:  users,
			Tokens: issuer,
			Audit:  audit.Recorder{DB: pool},
			Log:    logging.Component(log, "auth"),
		},
		LedgerHandler: &apphttp.LedgerHandler{
			Store:  transactions.NewRepo(pool),
			Users:  users,
			Events: publisher,
			Log:    logging.Component(log, "ledger"),
		},
		AuthMW:           auth.Middleware(issuer, users),
		WriteLimitMax:    cfg.RateLimitTxMax,
		WriteLimitWindow: cfg.RateLimitTxWindow,
	}
	r.RegisterRoutes(app)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
	if err := app.Listen(":" + cfg.Port); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("listen")
	}
}

func otpSender(cfg *config.Server, log zerolog.Logger) otp.Sender {
	switch cfg.OTPSender {
	case "twilio":
		return whatsapp.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)
	case "arkesel":
		return otp.NewArkeselSender(cfg.ArkeselAPIKey, cfg.ArkeselSenderID)
	default:
		return otp.LogSender{Log: logging.Component(log, "otp-sender")}
	}
}
