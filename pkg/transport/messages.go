// Package transport is the Controller's gRPC boundary: the outbound
// RunTask/EvaluateModel calls to a Learner, and the inbound
// LearnerCompletedTask call a Learner makes back. Per spec.md §1, the wire
// encoding of model tensors is out of scope; this package carries the
// fields spec.md §6 names over a small JSON-over-gRPC codec (see codec.go)
// rather than handwritten protobuf stand-ins, since the .proto this spec
// was distilled from was not part of the retrieval pack.
package transport

// Hyperparameters mirrors spec.md §6's RunTaskRequest.hyperparameters.
type Hyperparameters struct {
	BatchSize uint32 `json:"batch_size"`
	Optimizer string `json:"optimizer"`
}

// Task mirrors spec.md §6's RunTaskRequest.task.
type Task struct {
	GlobalIteration   uint32  `json:"global_iteration"`
	NumLocalUpdates   uint32  `json:"num_local_updates"`
	PercentValidation float32 `json:"percent_validation"`
}

// RunTaskRequest carries the community model and the next local-training
// task over to a learner.
type RunTaskRequest struct {
	FederatedModel  FederatedModelWire `json:"federated_model"`
	Task            Task               `json:"task"`
	Hyperparameters Hyperparameters    `json:"hyperparameters"`
}

// RunTaskResponse is informational only (spec.md §6) — its contents are
// never inspected, only its error/success.
type RunTaskResponse struct {
	Accepted bool `json:"accepted"`
}

// EvaluationDataset enumerates which dataset split an evaluation covers.
type EvaluationDataset string

const (
	DatasetTraining   EvaluationDataset = "TRAINING"
	DatasetValidation EvaluationDataset = "VALIDATION"
	DatasetTest       EvaluationDataset = "TEST"
)

// EvaluateModelRequest mirrors spec.md §6's EvaluateModelRequest. All three
// dataset splits are always requested.
type EvaluateModelRequest struct {
	Model             FederatedModelWire  `json:"model"`
	BatchSize         uint32              `json:"batch_size"`
	EvaluationDataset []EvaluationDataset `json:"evaluation_dataset"`
}

// EvaluationResult is one dataset split's evaluation metrics. The metric
// set itself (accuracy, loss, ...) is not specified by spec.md — it is
// passed through as an opaque map.
type EvaluationResult map[string]float64

// EvaluateModelResponse mirrors spec.md §6's EvaluateModelResponse.
type EvaluateModelResponse struct {
	Training   EvaluationResult `json:"training"`
	Validation EvaluationResult `json:"validation"`
	Test       EvaluationResult `json:"test"`
}

// FederatedModelWire is the over-the-wire shape of model.FederatedModel.
type FederatedModelWire struct {
	Weights         []float32 `json:"weights"`
	NumContributors uint32    `json:"num_contributors"`
	GlobalIteration uint32    `json:"global_iteration"`
	Initialized     bool      `json:"initialized"`
}

// ExecutionMetadataWire is the over-the-wire shape of model.ExecutionMetadata.
type ExecutionMetadataWire struct {
	GlobalIteration       uint32  `json:"global_iteration"`
	ProcessingMsPerBatch  float32 `json:"processing_ms_per_batch"`
	ProcessingMsPerEpoch  float32 `json:"processing_ms_per_epoch"`
	PercentValidationUsed float32 `json:"percent_validation_used"`
}

// CompletedLearningTaskWire is the over-the-wire shape of
// model.CompletedLearningTask.
type CompletedLearningTaskWire struct {
	Model             FederatedModelWire    `json:"model"`
	ExecutionMetadata ExecutionMetadataWire `json:"execution_metadata"`
}

// LearnerCompletedTaskRequest is the inbound call a Learner makes back to
// the Controller (spec.md §6's single inbound call).
type LearnerCompletedTaskRequest struct {
	LearnerID string                    `json:"learner_id"`
	AuthToken string                    `json:"auth_token"`
	Task      CompletedLearningTaskWire `json:"task"`
}

// LearnerCompletedTaskResponse acknowledges the inbound call.
type LearnerCompletedTaskResponse struct {
	Accepted bool `json:"accepted"`
}
