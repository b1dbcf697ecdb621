package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"roombook/pkg/calendar"
	"roombook/pkg/kafka"
	"roombook/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	StoreBackend string
	DataDir      string
	RosterFile   string
	VenuesFile   string
	Timezone     string

	SlotOpen          string
	SlotClose         string
	SlotStepMin       int
	MaxBookingMin     int
	BookingWindowDays int

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Kafka *kafka.Config

	Log *logger.Logger
}

// Load reads the environment, validates it and exits through Log.Fatal on
// any invalid setting.
func Load(serviceName string) *Config {
	cfg := FromEnv(serviceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func FromEnv(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		StoreBackend: getEnvStr(EnvStoreBackend, DefaultStoreBackend),
		DataDir:      getEnvStr(EnvDataDir, DefaultDataDir),
		RosterFile:   getEnvStr(EnvRosterFile, DefaultRosterFile),
		VenuesFile:   getEnvStr(EnvVenuesFile, ""),
		Timezone:     getEnvStr(EnvTimezone, DefaultTimezone),

		SlotOpen:          getEnvStr(EnvSlotOpen, DefaultSlotOpen),
		SlotClose:         getEnvStr(EnvSlotClose, DefaultSlotClose),
		SlotStepMin:       getEnvNum(EnvSlotStepMin, DefaultSlotStepMin),
		MaxBookingMin:     getEnvNum(EnvMaxBookingMin, DefaultMaxBookingMin),
		BookingWindowDays: getEnvNum(EnvBookingWindowDays, DefaultBookingWindowDays),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Kafka: kafka.LoadConfig(),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
	}
}

// Grid builds the bookable slot grid from the configured window.
func (cfg *Config) Grid() (*calendar.Grid, error) {
	open, err := calendar.ParseClock(cfg.SlotOpen)
	if err != nil {
		return nil, fmt.Errorf("invalid slot open %q: %w", cfg.SlotOpen, err)
	}
	closing, err := calendar.ParseClock(cfg.SlotClose)
	if err != nil {
		return nil, fmt.Errorf("invalid slot close %q: %w", cfg.SlotClose, err)
	}
	return calendar.NewGrid(open, closing, cfg.SlotStepMin)
}

func (cfg *Config) Location() (*time.Location, error) {
	return time.LoadLocation(cfg.Timezone)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreBackend {
	case StoreFile:
		if cfg.DataDir == "" {
			errors = append(errors, "DataDir cannot be empty when StoreBackend is file")
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [file, mongo], got: %s", cfg.StoreBackend))
	}

	if _, err := cfg.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("Timezone is not a known location, got: %s", cfg.Timezone))
	}

	if cfg.SlotStepMin <= 0 {
		errors = append(errors, fmt.Sprintf("SlotStepMin must be positive, got: %d", cfg.SlotStepMin))
	} else if _, err := cfg.Grid(); err != nil {
		errors = append(errors, fmt.Sprintf("Slot window %s-%s is invalid: %v", cfg.SlotOpen, cfg.SlotClose, err))
	}
	if cfg.MaxBookingMin <= 0 {
		errors = append(errors, fmt.Sprintf("MaxBookingMin must be positive, got: %d", cfg.MaxBookingMin))
	}
	if cfg.BookingWindowDays <= 0 {
		errors = append(errors, fmt.Sprintf("BookingWindowDays must be positive, got: %d", cfg.BookingWindowDays))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.Kafka != nil {
		if err := cfg.Kafka.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	args := []any{
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"data_dir", cfg.DataDir,
		"roster_file", cfg.RosterFile,
		"venues_file", cfg.VenuesFile,
		"timezone", cfg.Timezone,
		"slot_open", cfg.SlotOpen,
		"slot_close", cfg.SlotClose,
		"slot_step_min", cfg.SlotStepMin,
		"max_booking_min", cfg.MaxBookingMin,
		"booking_window_days", cfg.BookingWindowDays,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	}
	if cfg.StoreBackend == StoreMongo {
		args = append(args,
			"mongo_uri", redactMongoURI(cfg.MongoURI),
			"mongo_database", cfg.MongoDatabaseName,
			"mongo_conn_timeout", cfg.MongoConnTimeout,
		)
	}
	if cfg.Kafka != nil {
		args = append(args,
			"kafka_enabled", cfg.Kafka.Enabled,
			"kafka_brokers", cfg.Kafka.Brokers,
			"kafka_topic", cfg.Kafka.Topic,
		)
	}
	cfg.Log.Info("Configuration loaded successfully", args...)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
