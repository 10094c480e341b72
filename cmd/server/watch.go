package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/venue-checkin/internal/queue"
)

func watchCmd(a *app) *cobra.Command {
	var (
		binding   string
		queueName string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print refresh signals published on the AMQP exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := queue.ConsumerConfig{
				URL:        a.cfg.Realtime.AMQPURL,
				Exchange:   a.cfg.Realtime.Exchange,
				BindingKey: binding,
				Queue:      queueName,
			}
			out := cmd.OutOrStdout()
			err := queue.ConsumeRefreshEvents(cmd.Context(), cfg, func(_ context.Context, ev queue.RefreshEvent) error {
				_, err := fmt.Fprintf(out, "%s %s reason=%s id=%s\n", ev.EmittedAt.Format("15:04:05"), ev.Room, ev.Reason, ev.ID)
				return err
			}, a.log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&binding, "room", "#", "routing key to bind, a room name or an AMQP topic pattern")
	cmd.Flags().StringVar(&queueName, "queue", "", "durable queue name; empty uses a temporary queue")
	return cmd
}
