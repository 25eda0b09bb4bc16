package channel

import "errors"

var (
	// ErrSendFailed covers transport failures, non-2xx responses and missing
	// acknowledgements.
	ErrSendFailed = errors.New("send failed")
	// ErrInvalidCredential means the provider rejected the signing key.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNotConfigured means the channel lacks the settings it needs.
	ErrNotConfigured = errors.New("channel not configured")
	// ErrNotAcknowledged means the relay answered 2xx without a truthy ok flag.
	ErrNotAcknowledged = errors.New("relay did not acknowledge")
)
