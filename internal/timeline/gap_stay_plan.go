package timeline

import (
	"github.com/jengzang/records-timeline-go/internal/models"
)

// PlanKind selects the variant of a GapStayInferencePlan
type PlanKind int

const (
	// PlanNone: no inference, the caller emits a DataGap and resets state
	PlanNone PlanKind = iota
	// PlanContinueExistingStay: suppress the gap, state untouched
	PlanContinueExistingStay
	// PlanReplaceWithConfirmedStay: suppress the gap, StayPoints seed a confirmed stay
	PlanReplaceWithConfirmedStay
	// PlanFinalizeTripAndReplaceWithConfirmedStay: TripPoints become a Trip,
	// StayPoints seed a confirmed stay
	PlanFinalizeTripAndReplaceWithConfirmedStay
)

func (k PlanKind) String() string {
	switch k {
	case PlanNone:
		return "none"
	case PlanContinueExistingStay:
		return "continueExistingStay"
	case PlanReplaceWithConfirmedStay:
		return "replaceWithConfirmedStay"
	case PlanFinalizeTripAndReplaceWithConfirmedStay:
		return "finalizeTripAndReplaceWithConfirmedStay"
	}
	return "unknown"
}

// GapStayInferencePlan describes how a detected gap should be applied.
// It keeps the decision separate from finalization and state mutation.
type GapStayInferencePlan struct {
	Kind       PlanKind
	TripPoints []models.GPSPoint
	StayPoints []models.GPSPoint
}

// NoInference returns the none plan
func NoInference() GapStayInferencePlan {
	return GapStayInferencePlan{Kind: PlanNone}
}

// ContinueExistingStay returns a plan keeping the current stay as is
func ContinueExistingStay() GapStayInferencePlan {
	return GapStayInferencePlan{Kind: PlanContinueExistingStay}
}

// ReplaceWithConfirmedStay returns a plan seeding a confirmed stay from stayPoints
func ReplaceWithConfirmedStay(stayPoints []models.GPSPoint) GapStayInferencePlan {
	return GapStayInferencePlan{
		Kind:       PlanReplaceWithConfirmedStay,
		StayPoints: copyPoints(stayPoints),
	}
}

// FinalizeTripAndReplaceWithConfirmedStay returns a plan splitting the pending segment
func FinalizeTripAndReplaceWithConfirmedStay(tripPoints, stayPoints []models.GPSPoint) GapStayInferencePlan {
	return GapStayInferencePlan{
		Kind:       PlanFinalizeTripAndReplaceWithConfirmedStay,
		TripPoints: copyPoints(tripPoints),
		StayPoints: copyPoints(stayPoints),
	}
}

// Inferred reports whether the gap is bridged
func (p GapStayInferencePlan) Inferred() bool {
	return p.Kind != PlanNone
}

// HasTripToFinalize reports whether the plan carries a trip prefix
func (p GapStayInferencePlan) HasTripToFinalize() bool {
	return len(p.TripPoints) > 0
}

// HasReplacementStayPoints reports whether the plan replaces the active points
func (p GapStayInferencePlan) HasReplacementStayPoints() bool {
	return len(p.StayPoints) > 0
}

func copyPoints(points []models.GPSPoint) []models.GPSPoint {
	return append([]models.GPSPoint(nil), points...)
}
