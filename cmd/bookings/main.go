package main

import (
	"context"

	"roombook/internal/bookings/events"
	"roombook/internal/bookings/handler"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/service"
	"roombook/internal/bookings/validator"
	"roombook/internal/identity"
	"roombook/internal/venues"
	"roombook/pkg/app"
	"roombook/pkg/config"
	mongodb "roombook/pkg/db/mongo"
	"roombook/pkg/kafka"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Bookings service")

	serverApp := app.NewApplication(cfg)
	roster, bookingService, checks := initServices(cfg, serverApp)

	serverApp.SetApp(
		handler.NewHealthHandler(checks, cfg.Log),
		handler.NewBookingHandler(bookingService, roster, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) (*identity.Roster, service.BookingService, map[string]handler.ReadinessCheck) {
	grid, err := cfg.Grid()
	if err != nil {
		cfg.Log.Fatal("Invalid slot grid", "error", err)
	}
	location, err := cfg.Location()
	if err != nil {
		cfg.Log.Fatal("Invalid timezone", "error", err)
	}

	roster, err := identity.LoadFile(cfg.RosterFile, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to load roster", "error", err)
	}

	catalogue := venues.Default()
	if cfg.VenuesFile != "" {
		if catalogue, err = venues.Load(cfg.VenuesFile, cfg.Log); err != nil {
			cfg.Log.Fatal("Failed to load venue catalogue", "error", err)
		}
	}

	checks := map[string]handler.ReadinessCheck{}
	bookingRepo := initRepository(cfg, serverApp, checks)
	publisher := initPublisher(cfg, serverApp)

	bookingService := service.NewBookingService(
		bookingRepo,
		validator.NewBookingValidator(grid, cfg.MaxBookingMin, cfg.Log),
		roster,
		catalogue,
		publisher,
		service.SystemClock{Location: location},
		cfg,
	)

	cfg.Log.Info("Booking service initialized",
		"store", cfg.StoreBackend,
		"venues", len(catalogue.Venues),
		"identities", roster.Len(),
	)
	return roster, bookingService, checks
}

func initRepository(cfg *config.Config, serverApp *app.Application, checks map[string]handler.ReadinessCheck) repository.BookingRepository {
	if cfg.StoreBackend == config.StoreMongo {
		client, err := mongodb.Connect(context.Background(), cfg.MongoURI, cfg.MongoConnTimeout)
		if err != nil {
			cfg.Log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		cfg.Log.Info("Successfully connected to MongoDB", "database", cfg.MongoDatabaseName)
		serverApp.OnShutdown(app.Closer{Name: "mongo", Close: client.Disconnect})
		checks["mongo"] = mongodb.Ping(client)
		return repository.NewMongoBookingRepository(client, cfg.MongoDatabaseName, cfg.ReadTimeout, cfg.WriteTimeout)
	}

	repo, err := repository.NewFileBookingRepository(cfg.DataDir, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to open reservation store", "error", err, "dir", cfg.DataDir)
	}
	checks["store"] = func(ctx context.Context) error {
		_, err := repo.List(ctx)
		return err
	}
	return repo
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled {
		return events.NewNoopPublisher(cfg.Log)
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka.LoggingMiddleware(cfg.Log, producer.Topic()))
	serverApp.OnShutdown(app.Closer{Name: "kafka", Close: func(context.Context) error {
		return producer.Close()
	}})
	cfg.Log.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers, "topic", producer.Topic())
	return events.NewKafkaPublisher(producer, ServiceName)
}
