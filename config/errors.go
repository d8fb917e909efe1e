package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidPort is returned when the listen port is outside 1-65535.
	ErrInvalidPort = errors.New("invalid port: must be between 1 and 65535")

	// ErrUnknownDriver is returned when reader.driver is neither pcsc nor libnfc.
	ErrUnknownDriver = errors.New("unknown reader driver: must be pcsc or libnfc")

	// ErrInvalidPollInterval is returned when reader.pollInterval is not positive.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidSectorCount is returned when reader.sectors is negative or
	// larger than a Classic 4K card.
	ErrInvalidSectorCount = errors.New("invalid sector count: must be between 0 and 40")

	// ErrInvalidKey is returned when a reader key is not 12 hex digits.
	ErrInvalidKey = errors.New("invalid reader key")

	// ErrUnknownReportFormat is returned for a report format other than text, json or markdown.
	ErrUnknownReportFormat = errors.New("unknown report format: must be text, json or markdown")
)
