package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvStoreBackend = "STORE_BACKEND"
	EnvDataDir      = "DATA_DIR"
	EnvRosterFile   = "ROSTER_FILE"
	EnvVenuesFile   = "VENUES_FILE"
	EnvTimezone     = "TIMEZONE"

	EnvSlotOpen          = "SLOT_OPEN"
	EnvSlotClose         = "SLOT_CLOSE"
	EnvSlotStepMin       = "SLOT_STEP_MIN"
	EnvMaxBookingMin     = "MAX_BOOKING_MIN"
	EnvBookingWindowDays = "BOOKING_WINDOW_DAYS"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
