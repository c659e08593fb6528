// Command mailworker delivers mail queued by the API server.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/mess-connect/internal/config"
	"github.com/iliyamo/mess-connect/internal/queue"
	"github.com/iliyamo/mess-connect/internal/service"
)

func main() {
	cfg := config.LoadMailConfig()
	log := config.NewLogger(os.Getenv("LOG_LEVEL"), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mailer service.Mailer = service.NewLogMailer(log)
	if cfg.APIKey != "" {
		mailer = service.NewResend(cfg.BaseURL, cfg.APIKey, cfg.From, nil)
	} else {
		log.Warn("RESEND_API_KEY not set, queued mail is only logged")
	}

	log.Info("mail worker started", "queue", queue.MailQueueName)
	err := queue.ConsumeMail(ctx, cfg.RabbitURL, service.DeliverEvent(mailer), log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("mail worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("mail worker stopped")
}
