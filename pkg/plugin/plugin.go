// Package plugin defines the four stateless contracts the Round Engine
// drives every round — ScalingFunction, AggregationFunction, Scheduler, and
// Selector — plus the reference implementations spec.md §4.1 names.
//
// The interface shapes follow the teacher's AggregationAlgorithm contract
// in pkg/aggregator/algorithms.go (Initialize/Aggregate/GetName), adapted
// to the signatures spec.md actually specifies.
package plugin

import "github.com/fedgo/controller/pkg/model"

// ScalingFunction computes a non-negative per-learner weight from the
// current community model and the participating learner states. Pure and
// side-effect free; failure modes are configuration-time only.
type ScalingFunction interface {
	ComputeScalingFactors(community model.FederatedModel, participating map[string]model.LearnerState) map[string]float64
}

// WeightedInput pairs a model with the scaling factor computed for it.
type WeightedInput struct {
	Model  *model.Model
	Factor float64
}

// AggregationFunction combines weighted inputs into a new FederatedModel.
// Pure and deterministic in its inputs. Implementations must set
// NumContributors = len(inputs); GlobalIteration is stamped by the caller.
type AggregationFunction interface {
	Aggregate(inputs []WeightedInput) (model.FederatedModel, error)
}

// Scheduler decides, given the learner that just completed a task, whether
// the current round has closed and who trains next. An empty result means
// "no round yet".
type Scheduler interface {
	ScheduleNext(justCompletedLearnerID string, task model.CompletedLearningTask, allLearners []model.LearnerDescriptor) []string
}

// Selector narrows the set of learners the Scheduler picked down to the
// set whose models actually enter aggregation.
type Selector interface {
	Select(toSchedule []string, allLearners []model.LearnerDescriptor) []string
}
