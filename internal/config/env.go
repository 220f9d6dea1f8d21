package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"railticket/internal/clock"
	"railticket/internal/domain/models"
	"railticket/internal/utils"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr string
	GinMode string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NATSURL string

	JWTSecret          string
	CORSAllowedOrigins []string

	Location        *time.Location
	DefaultSpeedKmh float64
	PendingHold     time.Duration
	CancelGrace     time.Duration
	StopDwell       time.Duration
	FarePerKm       models.Money
	StationCacheTTL time.Duration
	SeatLockWait    time.Duration

	LogLevel  string
	LogFormat string
}

// LoadEnv reads the environment, after loading .env when present.
func LoadEnv() (Env, error) {
	_ = godotenv.Load()

	env := Env{
		AppAddr:       getenvDefault("APP_ADDR", ":8080"),
		GinMode:       strings.TrimSpace(os.Getenv("GIN_MODE")),
		DBDriver:      strings.ToLower(getenvDefault("DB_DRIVER", "mysql")),
		DBDSN:         strings.TrimSpace(os.Getenv("DB_DSN")),
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		NATSURL:       strings.TrimSpace(os.Getenv("NATS_URL")),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      getenvDefault("LOG_LEVEL", "info"),
		LogFormat:     getenvDefault("LOG_FORMAT", "json"),
	}

	switch env.DBDriver {
	case "mysql":
		if env.DBDSN == "" {
			env.DBDSN = "root:@tcp(127.0.0.1:3306)/railticket?charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"
		}
	case "sqlite":
		if env.DBDSN == "" {
			env.DBDSN = "file:railticket.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	default:
		return Env{}, fmt.Errorf("invalid DB_DRIVER %q: want mysql or sqlite", env.DBDriver)
	}

	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Env{}, fmt.Errorf("invalid REDIS_DB: %q", v)
		}
		env.RedisDB = n
	}

	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			env.CORSAllowedOrigins = append(env.CORSAllowedOrigins, o)
		}
	}

	offset, err := clock.ParseOffset(getenvDefault("PLATFORM_UTC_OFFSET", "+03:00"))
	if err != nil {
		return Env{}, fmt.Errorf("invalid PLATFORM_UTC_OFFSET: %w", err)
	}
	env.Location = clock.NewFixedOffset(offset).Location

	if env.DefaultSpeedKmh, err = positiveFloat("DEFAULT_TRAIN_SPEED_KMH", 300); err != nil {
		return Env{}, err
	}
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"PENDING_HOLD", time.Minute, &env.PendingHold},
		{"CANCEL_GRACE", time.Hour, &env.CancelGrace},
		{"STOP_DWELL", 10 * time.Minute, &env.StopDwell},
		{"STATION_CACHE_TTL", 10 * time.Minute, &env.StationCacheTTL},
		{"SEAT_LOCK_WAIT", 3 * time.Second, &env.SeatLockWait},
	}
	for _, d := range durations {
		if *d.dst, err = positiveDuration(d.key, d.def); err != nil {
			return Env{}, err
		}
	}

	fare, err := utils.ParseMoney(getenvDefault("FARE_PER_KM", "0.050"))
	if err != nil || fare < 0 {
		return Env{}, fmt.Errorf("invalid FARE_PER_KM: %q", os.Getenv("FARE_PER_KM"))
	}
	env.FarePerKm = fare

	return env, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func positiveFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func positiveDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
