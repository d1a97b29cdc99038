package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/lgndcraft2/ledger/internal/config"
	"github.com/lgndcraft2/ledger/internal/events"
	"github.com/lgndcraft2/ledger/internal/logging"
	"github.com/lgndcraft2/ledger/internal/whatsapp"
)

func main() {
	config.LoadDotenv()
	cfg := config.LoadServer()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Console: cfg.LogConsole, Service: "ledger-notifier"})

	if cfg.AMQPURL == "" {
		log.Fatal().Msg("AMQP_URL is not set")
	}
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioWhatsAppFrom == "" {
		log.Fatal().Msg("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM are required")
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logging.Component(log, "events"))
	if err != nil {
		log.Fatal().Err(err).Msg("connect AMQP")
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	twilio := whatsapp.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)
	handler := whatsapp.ReceiptHandler(twilio, logging.Component(log, "receipts"))

	log.Info().Str("queue", cfg.AMQPQueue).Msg("notifier started")
	if err := client.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consume failed")
		os.Exit(1)
	}
	log.Info().Msg("notifier stopped")
}
