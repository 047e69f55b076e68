package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chrisdamba/foodatrack/internal/api"
	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/notify"
	"github.com/chrisdamba/foodatrack/internal/observers"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking API with notifications and live order streams",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Server.JWTSecret == "" {
			return errors.New("server.jwt_secret is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer st.repo.Close()

		hub := observers.NewHub(st.repo, logger)
		defer hub.Close()
		st.watch(ctx, hub.Publish)

		channels, closers, err := buildChannels(cfg)
		if err != nil {
			return err
		}
		defer func() {
			for _, c := range closers {
				if err := c.Close(); err != nil {
					logger.Warn("closing notification channel", "error", err)
				}
			}
		}()

		var dispatcher *notify.Dispatcher
		tracker := tracking.NewTracker(st.repo, notify.EmitterFunc(func(e notify.Event) {
			dispatcher.Emit(e)
		}), logger, tracking.WithPricing(cfg.Pricing))
		dispatcher = notify.NewDispatcher(cfg.Dispatcher, tracker, logger, channels)
		stopDispatcher := runDispatcher(dispatcher)
		defer stopDispatcher()

		return api.NewServer(tracker, st.repo, hub, cfg.Server.JWTSecret, logger).Run(ctx, cfg.Server.Address)
	},
}

func init() {
	serveCmd.Flags().String("address", ":8080", "listen address")
	cobra.CheckErr(v.BindPFlag("server.address", serveCmd.Flags().Lookup("address")))
}

// buildChannels returns the enabled notification channels and the ones that
// hold connections needing a Close on shutdown.
func buildChannels(c *models.Config) ([]notify.Channel, []io.Closer, error) {
	var (
		channels []notify.Channel
		closers  []io.Closer
	)
	if c.SMS.Enabled {
		channels = append(channels, notify.NewSMSChannel(c.SMS))
	}
	if c.Email.Enabled {
		channels = append(channels, notify.NewEmailChannel(c.Email))
	}
	if c.Kafka.Enabled {
		producer, err := notify.NewKafkaProducer(c.Kafka)
		if err != nil {
			return nil, nil, err
		}
		kc := notify.NewKafkaChannel(producer, c.Kafka.Topic)
		channels = append(channels, kc)
		closers = append(closers, kc)
	}
	return channels, closers, nil
}

// drainTimeout bounds how long shutdown waits for undelivered notifications.
const drainTimeout = 30 * time.Second

// runDispatcher starts d on its own context, so a shutdown signal does not
// abort sends in progress. The returned stop drains d, then cancels the
// workers and waits for them; call it before closing channels or the store.
func runDispatcher(d *notify.Dispatcher) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	return func() {
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
		defer cancelDrain()
		if err := d.Drain(drainCtx); err != nil {
			logger.Warn("notifications still pending at exit", "pending", d.Pending())
		}
		cancel()
		<-done
	}
}
