package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"railticket/internal/clock"
	intconfig "railticket/internal/config"
	"railticket/internal/events"
	router "railticket/internal/http"
	"railticket/internal/http/handlers"
	"railticket/internal/importer"
	"railticket/internal/lock"
	"railticket/internal/metrics"
	"railticket/internal/repositories"
	"railticket/internal/services"
	"railticket/internal/stationcache"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:           "railticket",
		Usage:          "rail route-segment booking service",
		DefaultCommand: "run",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "start the HTTP API",
				Action: runServer,
			},
			{
				Name:   "migrate",
				Usage:  "create missing tables",
				Action: migrate,
			},
			{
				Name:  "import",
				Usage: "load stations, trains and trips from CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "stations", Usage: "stations CSV (id,name,latitude,longitude,order)"},
					&cli.StringFlag{Name: "trains", Usage: "trains CSV (id,train_number,type,speed_kmh,total_seats)"},
					&cli.StringFlag{Name: "trips", Usage: "trips CSV (id,train_id,from_station_id,to_station_id,departure_time,arrival_time,price,status,skipped_station_ids)"},
				},
				Action: importCSV,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("railticket stopped")
	}
}

func setup() (intconfig.Env, error) {
	env, err := intconfig.LoadEnv()
	if err != nil {
		return env, err
	}
	setupLogger(env)
	return env, nil
}

func setupLogger(env intconfig.Env) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level, err := zerolog.ParseLevel(strings.ToLower(env.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if env.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func connectRedis(ctx context.Context, env intconfig.Env) (*redis.Client, error) {
	if env.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     env.RedisAddr,
		Password: env.RedisPassword,
		DB:       env.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", env.RedisAddr, err)
	}
	log.Info().Str("addr", env.RedisAddr).Msg("connected to redis")
	return client, nil
}

func runServer(c *cli.Context) error {
	env, err := setup()
	if err != nil {
		return err
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}
	if env.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty, booking routes will reject every request")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := intconfig.ConnectDB(env)
	if err != nil {
		return err
	}
	defer intconfig.CloseDB()
	if err := repositories.EnsureSchema(ctx, db); err != nil {
		return err
	}

	collector := metrics.NewCollector()
	stationRepo := repositories.StationRepo{DB: db}
	var stations services.StationReader = stationRepo
	var locker lock.SeatLocker = lock.NewLocal()

	rdb, err := connectRedis(ctx, env)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		cache := stationcache.New(stationRepo, rdb, env.StationCacheTTL)
		cache.Observer = collector
		stations = cache
		locker = lock.NewRedis(rdb, lock.DefaultLockTTL)
	}

	var publisher services.Publisher = events.Nop{}
	if env.NATSURL != "" {
		nc, err := events.ConnectNATS(env.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		publisher = nc
	}

	clk := clock.FixedOffset{Location: env.Location}
	trips := repositories.TripRepo{DB: db}
	hs := &handlers.Handlers{
		Stations: stations,
		Trains:   repositories.TrainRepo{DB: db},
		Trips: services.TripService{
			Stations:        stations,
			Trips:           trips,
			Clock:           clk,
			Location:        env.Location,
			CancelGrace:     env.CancelGrace,
			Observer:        collector,
			DefaultSpeedKmh: env.DefaultSpeedKmh,
			StopDwell:       env.StopDwell,
			FarePerKm:       env.FarePerKm,
		},
		Bookings: services.BookingService{
			Stations:    stations,
			Trips:       trips,
			Bookings:    repositories.BookingRepo{DB: db},
			Locker:      locker,
			Clock:       clk,
			Observer:    collector,
			Publisher:   publisher,
			Metrics:     collector,
			PendingHold: env.PendingHold,
			LockWait:    env.SeatLockWait,
		},
		Location: env.Location,
	}

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           router.NewRouter(env, hs, collector),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", env.AppAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func migrate(c *cli.Context) error {
	env, err := setup()
	if err != nil {
		return err
	}
	db, err := intconfig.ConnectDB(env)
	if err != nil {
		return err
	}
	defer intconfig.CloseDB()
	if err := repositories.EnsureSchema(c.Context, db); err != nil {
		return err
	}
	log.Info().Msg("schema is up to date")
	return nil
}

func importCSV(c *cli.Context) error {
	files := []struct {
		flag string
		run  func(importer.Importer, context.Context, io.Reader) (int, error)
	}{
		{"stations", importer.Importer.ImportStations},
		{"trains", importer.Importer.ImportTrains},
		{"trips", importer.Importer.ImportTrips},
	}
	requested := false
	for _, f := range files {
		requested = requested || c.String(f.flag) != ""
	}
	if !requested {
		return cli.Exit("nothing to import: pass --stations, --trains and/or --trips", 2)
	}

	env, err := setup()
	if err != nil {
		return err
	}
	db, err := intconfig.ConnectDB(env)
	if err != nil {
		return err
	}
	defer intconfig.CloseDB()
	ctx := c.Context
	if err := repositories.EnsureSchema(ctx, db); err != nil {
		return err
	}

	im := importer.Importer{
		Stations: repositories.StationRepo{DB: db},
		Trains:   repositories.TrainRepo{DB: db},
		Trips:    repositories.TripRepo{DB: db},
	}
	for _, f := range files {
		path := c.String(f.flag)
		if path == "" {
			continue
		}
		fh, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		n, err := f.run(im, ctx, fh)
		_ = fh.Close()
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		log.Info().Str("file", path).Int("rows", n).Msgf("imported %s", f.flag)
	}

	if c.String("stations") != "" {
		rdb, err := connectRedis(ctx, env)
		if err != nil {
			log.Warn().Err(err).Msg("station cache not invalidated")
			return nil
		}
		if rdb != nil {
			defer rdb.Close()
			stationcache.New(repositories.StationRepo{DB: db}, rdb, env.StationCacheTTL).Invalidate(ctx)
		}
	}
	return nil
}
