package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/USA-RedDragon/itinerary-server/internal/archive"
	"github.com/USA-RedDragon/itinerary-server/internal/config"
	database "github.com/USA-RedDragon/itinerary-server/internal/db"
	"github.com/USA-RedDragon/itinerary-server/internal/events"
	"github.com/USA-RedDragon/itinerary-server/internal/geocode"
	"github.com/USA-RedDragon/itinerary-server/internal/itinerary"
	"github.com/USA-RedDragon/itinerary-server/internal/metrics"
	"github.com/USA-RedDragon/itinerary-server/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"golang.org/x/sync/errgroup"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "itinerary-server",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(cmd)
	cmd.AddCommand(newTokenCommand())
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	slog.Info("itinerary-server", "version", cmd.Annotations["version"], "commit", cmd.Annotations["commit"])

	config, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := archive.NewBackend(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to open plan archive: %w", err)
	}
	planArchive, err := archive.New(backend)
	if err != nil {
		return fmt.Errorf("failed to open plan archive: %w", err)
	}

	db, err := database.MakeDB(config)
	if err != nil {
		return fmt.Errorf("failed to make database: %w", err)
	}
	slog.Info("Database connection established")

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	geocoder, err := geocode.New(config, m)
	if err != nil {
		return fmt.Errorf("failed to create geocoder: %w", err)
	}

	var locker itinerary.TripLocker = itinerary.NewLocalLocker()
	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient = connectRedis(config)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = itinerary.NewRedisLocker(redisClient, itinerary.DefaultRedisLockTTL)
		slog.Info("Using redis for trip locks", "address", config.Redis.Address)
	}

	var publisher events.Publisher = events.Noop{}
	if config.NATS.Enabled {
		publisher, err = events.NewNATSPublisher(config.NATS.URL, config.NATS.Subject)
		if err != nil {
			return err
		}
		slog.Info("Publishing itinerary events to NATS", "url", config.NATS.URL, "subject", config.NATS.Subject)
	}

	svc := itinerary.NewService(db, geocoder,
		itinerary.WithLocker(locker),
		itinerary.WithPublisher(publisher),
		itinerary.WithArchive(planArchive),
		itinerary.WithMetrics(m),
	)

	slog.Info("Starting HTTP server")
	server := server.NewServer(config, db, svc)
	err = server.Start()
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	stop := func(_ os.Signal) {
		slog.Info("Shutting down")

		// Stop accepting requests before closing what they use.
		if err := server.Stop(); err != nil {
			slog.Error("Shutdown error", "error", err.Error())
		}

		errGrp := errgroup.Group{}
		errGrp.Go(func() error {
			return publisher.Close()
		})
		errGrp.Go(func() error {
			return planArchive.Close()
		})
		if redisClient != nil {
			errGrp.Go(func() error {
				return redisClient.Close()
			})
		}
		errGrp.Go(func() error {
			return database.Close(db)
		})

		err := errGrp.Wait()
		if err != nil {
			slog.Error("Shutdown error", "error", err.Error())
		}
		slog.Info("Shutdown complete")
	}

	if cmd.Annotations["version"] == "testing" {
		doneChannel := make(chan struct{})
		go func() {
			slog.Info("Sleeping for 5 seconds")
			time.Sleep(5 * time.Second)
			slog.Info("Sending SIGTERM")
			stop(syscall.SIGTERM)
			doneChannel <- struct{}{}
		}()
		<-doneChannel
	} else {
		shutdown.AddWithParam(stop)
		shutdown.Listen(syscall.SIGINT, syscall.SIGKILL, syscall.SIGTERM, syscall.SIGQUIT)
	}

	return nil
}

func connectRedis(config *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     config.Redis.Address,
		Username: config.Redis.Username,
		Password: config.Redis.Password,
		DB:       config.Redis.Database,
	})
}
