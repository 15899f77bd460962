package models

// ProcessorMode is the per-user tracking state of the timeline processor
type ProcessorMode string

// ProcessorMode constants
const (
	ModeUnknown       ProcessorMode = "UNKNOWN"
	ModePotentialStay ProcessorMode = "POTENTIAL_STAY"
	ModeConfirmedStay ProcessorMode = "CONFIRMED_STAY"
	ModeInTrip        ProcessorMode = "IN_TRIP"
)

// IsStay reports whether the mode is one of the stay modes.
func (m ProcessorMode) IsStay() bool {
	return m == ModePotentialStay || m == ModeConfirmedStay
}

// Valid reports whether m is a known mode.
func (m ProcessorMode) Valid() bool {
	switch m {
	case ModeUnknown, ModePotentialStay, ModeConfirmedStay, ModeInTrip:
		return true
	}
	return false
}
