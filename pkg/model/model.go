// Package model defines the data types that flow between the Controller,
// the Learner Registry, and the Round Engine. None of these types know how
// to train, evaluate, or encode a model on the wire — they are plain data.
package model

import "time"

// Endpoint identifies where a Learner's gRPC server can be reached.
type Endpoint struct {
	Host string
	Port int32
}

// DatasetSpec describes the size of a learner's local dataset partitions.
type DatasetSpec struct {
	NumTrainingExamples   uint32
	NumValidationExamples uint32
	NumTestExamples       uint32
}

// LearnerDescriptor is the immutable-after-admission identity of a learner.
type LearnerDescriptor struct {
	ID          string
	AuthToken   string
	Endpoint    Endpoint
	DatasetSpec DatasetSpec
}

// LearningTaskTemplate is the per-learner knob recomputed under the
// semi-synchronous protocol from observed training speed.
type LearningTaskTemplate struct {
	NumLocalUpdates uint32
}

// Model is an opaque parameter container. The Controller never looks inside
// Weights; it only counts, copies, and scales them via the plug-in contracts.
type Model struct {
	Weights []float32
}

// FederatedModel is the community model: a Model plus the bookkeeping the
// Controller stamps on every round.
type FederatedModel struct {
	Model           Model
	NumContributors uint32
	GlobalIteration uint32
	Initialized     bool
}

// ExecutionMetadata describes how a single local training task executed.
type ExecutionMetadata struct {
	GlobalIteration       uint32
	ProcessingMsPerBatch  float32
	ProcessingMsPerEpoch  float32
	PercentValidationUsed float32
}

// CompletedLearningTask is the payload a Learner reports back through
// LearnerCompletedTask.
type CompletedLearningTask struct {
	Model             Model
	ExecutionMetadata ExecutionMetadata
}

// FederatedTaskRuntimeMetadata is one row of the round-metadata lineage.
type FederatedTaskRuntimeMetadata struct {
	GlobalIteration      uint32
	StartedAt            time.Time
	CompletedAt          time.Time
	AssignedToLearnerID  []string
	CompletedByLearnerID []string
}

// EvaluationTriple holds the three dataset-split evaluation results a
// Learner reports for a community model.
type EvaluationTriple struct {
	Training   map[string]float64
	Validation map[string]float64
	Test       map[string]float64
}

// CommunityModelEvaluation is one row of the community-evaluation lineage.
// Evaluations is append-only: entries are added, never removed or
// overwritten, one per (ref_idx, learner_id) pair.
type CommunityModelEvaluation struct {
	GlobalIteration uint32
	Evaluations     map[string]EvaluationTriple
}

// LearnerState owns a LearnerDescriptor plus the bounded history of
// locally submitted models (single-element in the reference behavior). The
// per-learner task template is kept by the registry, not here.
type LearnerState struct {
	Descriptor LearnerDescriptor
	// Model is the latest submitted local model, cleared and replaced on
	// every completion. A nil slice means "no submission yet".
	Model []Model
}

// LatestModel returns the most recently submitted model for this learner,
// and whether one has ever been submitted.
func (s LearnerState) LatestModel() (Model, bool) {
	if len(s.Model) == 0 {
		return Model{}, false
	}
	return s.Model[len(s.Model)-1], true
}
