package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/clinic-patients/internal/queue"
)

func auditConsumerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit-consumer",
		Short: "Write patient audit events from RabbitMQ to the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			audit, f, err := queue.OpenAuditLog(cfg.Queue.AuditLog)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := &queue.Consumer{URL: cfg.Queue.URL, Queue: cfg.Queue.AuditQueue, Audit: audit, Log: logger}
			logger.Info().Str("queue", cfg.Queue.AuditQueue).Str("file", cfg.Queue.AuditLog).Msg("audit consumer started")
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info().Msg("audit consumer stopped")
			return nil
		},
	}
}
