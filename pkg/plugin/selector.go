package plugin

import "github.com/fedgo/controller/pkg/model"

// ScheduledCardinalitySelector selects every scheduled learner's model for
// aggregation, unchanged — named after the original's ScheduledCardinality
// selector.
type ScheduledCardinalitySelector struct{}

func (ScheduledCardinalitySelector) Select(toSchedule []string, _ []model.LearnerDescriptor) []string {
	out := make([]string, len(toSchedule))
	copy(out, toSchedule)
	return out
}
