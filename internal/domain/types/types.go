// Package types contains the closed enumerations shared across layers.
package types

// Outcome classifies the result of a delivery or resend request. It is the
// only delivery status exposed to callers; raw provider text is diagnostic.
//
// The channel chain yields Success, NotConfigured, InvalidCredential or
// SendFailed. A recipient leg yields Success, NotConfigured,
// InvalidCredential, Error or Skipped. Resend adds NotFound, NoAddress,
// InvalidID and InvalidAddress.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeNotConfigured     Outcome = "not_configured"
	OutcomeInvalidCredential Outcome = "invalid_credential"
	OutcomeSendFailed        Outcome = "send_failed"
	OutcomeError             Outcome = "error"
	OutcomeSkipped           Outcome = "skipped"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeNoAddress         Outcome = "no_address"
	OutcomeInvalidID         Outcome = "invalid_id"
	OutcomeInvalidAddress    Outcome = "invalid_address"
)

// String implements fmt.Stringer.
func (o Outcome) String() string { return string(o) }

// OK reports whether the outcome represents a committed delivery.
func (o Outcome) OK() bool { return o == OutcomeSuccess }

// ChannelKind names a transmission mechanism.
type ChannelKind string

const (
	ChannelNone       ChannelKind = ""
	ChannelRelay      ChannelKind = "relay"
	ChannelProvider   ChannelKind = "provider"
	ChannelSimulation ChannelKind = "simulation"
)

// String implements fmt.Stringer. The empty kind renders as "none".
func (k ChannelKind) String() string {
	if k == ChannelNone {
		return "none"
	}
	return string(k)
}

// MarshalText encodes the kind the way String renders it.
func (k ChannelKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the rendered form, mapping "none" back to ChannelNone.
func (k *ChannelKind) UnmarshalText(b []byte) error {
	*k = ChannelKind(b)
	if *k == "none" {
		*k = ChannelNone
	}
	return nil
}

// Role identifies the recipient of a delivery leg.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleCoordinator Role = "coordinator"
)
