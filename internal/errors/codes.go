package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel  ErrorCode = "invalid_log_level"
	ErrLogAlreadyPaused ErrorCode = "log_already_paused"
	ErrLogNotPaused     ErrorCode = "log_not_paused"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Scheduler errors
	ErrRegistryFull      ErrorCode = "registry_full"
	ErrInvalidDescriptor ErrorCode = "invalid_descriptor"

	// Sensor errors
	ErrSensorInit ErrorCode = "sensor_init_failed"
	ErrSensorRead ErrorCode = "sensor_read_failed"

	// Command errors
	ErrUnknownCommand ErrorCode = "unknown_command"
	ErrUnknownOption  ErrorCode = "unknown_option"
	ErrUnknownMode    ErrorCode = "unknown_mode"

	// Application errors
	ErrInitNode ErrorCode = "init_node_failed"
	ErrMainLoop ErrorCode = "main_loop_failed"

	// Metrics errors
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
	ErrTimeout        ErrorCode = "operation_timeout"

	// Transport errors
	ErrTransportClosed ErrorCode = "transport_closed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrAlreadyRunning:    "Another sensor node instance is running",
	ErrInvalidConfig:     "Invalid configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read configuration",
	ErrInvalidInterval:   "Invalid interval value",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrLogAlreadyPaused:  "Task logging is already paused",
	ErrLogNotPaused:      "Task logging is not paused",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrRegistryFull:      "Task list is full",
	ErrInvalidDescriptor: "Invalid task descriptor",
	ErrSensorInit:        "Sensor initialization failed",
	ErrSensorRead:        "Sensor read failed",
	ErrUnknownCommand:    "Unknown command",
	ErrUnknownOption:     "Unknown option",
	ErrUnknownMode:       "Unknown power mode",
	ErrInitNode:          "Failed to initialize node",
	ErrMainLoop:          "Error in main loop",
	ErrInitMetrics:       "Failed to initialize metrics",
	ErrCollectMetrics:    "Failed to collect metrics data",
	ErrCloseMetrics:      "Failed to close metrics connection",
	ErrTimeout:           "Operation timed out",
	ErrTransportClosed:   "Transport closed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
