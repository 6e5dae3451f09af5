package ddns

import "errors"

var (
	// ErrConfiguration marks a missing or malformed configuration file.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnknownDriver marks a service or update method name with no registered driver.
	ErrUnknownDriver = errors.New("unknown driver")
	// ErrServiceConfig marks a driver constructed with missing or invalid settings.
	ErrServiceConfig = errors.New("invalid driver settings")
	// ErrAddressUnavailable marks an address source that could not determine an address.
	ErrAddressUnavailable = errors.New("address unavailable")
	// ErrServiceUpdateFailed marks a DNS service that could not verify or apply an update.
	ErrServiceUpdateFailed = errors.New("service update failed")
)
