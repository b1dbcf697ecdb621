package config

import "time"

const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "roombook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultStoreBackend = StoreFile
	DefaultDataDir      = "data"
	DefaultRosterFile   = "data/users.txt"
	DefaultTimezone     = "Local"

	DefaultSlotOpen          = "08:00"
	DefaultSlotClose         = "21:00"
	DefaultSlotStepMin       = 30
	DefaultMaxBookingMin     = 180
	DefaultBookingWindowDays = 5

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 64 * 1024

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
