package dbconn

import (
	"errors"
	"fmt"
)

var (
	// ErrCouldntSetupConfiguration is matched by the error Establish returns
	// when the connection opened but the capability probe failed.
	ErrCouldntSetupConfiguration = errors.New("dbconn: couldn't set up connection configuration")

	// ErrConnClosed is returned by operations on a closed connection.
	ErrConnClosed = errors.New("dbconn: connection closed")

	// ErrConnNotReady is returned by operations on a connection that has not
	// finished establishing.
	ErrConnNotReady = errors.New("dbconn: connection not ready")

	errProbeNoRows = errors.New("probe query returned no rows")
)

// ConfigurationError reports a failed capability probe.
//
// The underlying connection was established successfully and is still open;
// it is handed back in Conn so the caller can inspect or close it.
type ConfigurationError struct {
	Conn Conn
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrCouldntSetupConfiguration, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCouldntSetupConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrCouldntSetupConfiguration
}
