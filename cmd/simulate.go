package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chrisdamba/foodatrack/internal/notify"
	"github.com/chrisdamba/foodatrack/internal/simulator"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive simulated orders through the tracker",
	Long: `simulate generates restaurants, couriers and customers, then places orders and walks
each one through its lifecycle on a simulated clock. Every write goes through the
tracker, so the store ends up with realistic history. With kafka enabled the
resulting events are published as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer st.repo.Close()

		clock := simulator.NewClock(time.Now().UTC())
		opts := []tracking.Option{tracking.WithClock(clock.Now), tracking.WithPricing(cfg.Pricing)}
		if !cfg.Kafka.Enabled {
			return runSimulation(ctx, tracking.NewTracker(st.repo, nil, logger, opts...), clock)
		}

		producer, err := notify.NewKafkaProducer(cfg.Kafka)
		if err != nil {
			return err
		}
		kafka := notify.NewKafkaChannel(producer, cfg.Kafka.Topic)
		defer kafka.Close()

		var dispatcher *notify.Dispatcher
		tracker := tracking.NewTracker(st.repo, notify.EmitterFunc(func(e notify.Event) {
			dispatcher.Emit(e)
		}), logger, opts...)
		dispatcher = notify.NewDispatcher(cfg.Dispatcher, tracker, logger, []notify.Channel{kafka})
		stopDispatcher := runDispatcher(dispatcher)
		defer stopDispatcher()

		return runSimulation(ctx, tracker, clock)
	},
}

func init() {
	simulateCmd.Flags().Int("orders", 100, "number of orders to simulate")
	simulateCmd.Flags().Int("drivers", 20, "number of couriers")
	simulateCmd.Flags().Int("restaurants", 10, "number of restaurants")
	simulateCmd.Flags().Int64("seed", 42, "random seed")
	cobra.CheckErr(v.BindPFlag("simulation.orders", simulateCmd.Flags().Lookup("orders")))
	cobra.CheckErr(v.BindPFlag("simulation.drivers", simulateCmd.Flags().Lookup("drivers")))
	cobra.CheckErr(v.BindPFlag("simulation.restaurants", simulateCmd.Flags().Lookup("restaurants")))
	cobra.CheckErr(v.BindPFlag("simulation.seed", simulateCmd.Flags().Lookup("seed")))
}

func runSimulation(ctx context.Context, lifecycle simulator.Lifecycle, clock *simulator.Clock) error {
	bar := progressbar.Default(int64(cfg.Simulation.Orders), "simulating orders")
	sim := simulator.NewSimulator(cfg.Simulation, lifecycle, clock, logger,
		simulator.WithProgress(func() { _ = bar.Add(1) }))

	start := time.Now()
	stats, err := sim.Run(ctx)
	_ = bar.Finish()
	if err != nil {
		return err
	}
	logger.Info("simulation finished",
		"placed", stats.Placed,
		"delivered", stats.Delivered,
		"cancelled", stats.Cancelled,
		"failed", stats.Failed,
		"location_updates", stats.LocationUpdates,
		"interactions", stats.Interactions,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	fmt.Printf("mean estimate error: %.1f minutes\n", stats.EstimateErrorMinutes)
	return nil
}
