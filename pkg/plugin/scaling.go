package plugin

import "github.com/fedgo/controller/pkg/model"

// DatasetSizeScaler weighs each participating learner proportionally to
// its local training-example count, the original controller's default
// scaling function (ComputeScalingFactors in model_scaling.h).
type DatasetSizeScaler struct{}

func (DatasetSizeScaler) ComputeScalingFactors(_ model.FederatedModel, participating map[string]model.LearnerState) map[string]float64 {
	factors := make(map[string]float64, len(participating))

	var total uint64
	for _, state := range participating {
		total += uint64(state.Descriptor.DatasetSpec.NumTrainingExamples)
	}
	if total == 0 {
		for id := range participating {
			factors[id] = 0
		}
		return factors
	}
	for id, state := range participating {
		factors[id] = float64(state.Descriptor.DatasetSpec.NumTrainingExamples) / float64(total)
	}
	return factors
}

// UniformScaler assigns every participating learner an equal weight,
// matching the teacher's fallback "equal weighting if no sample info"
// branch in pkg/aggregator/algorithms.go's FedAvgAlgorithm.Aggregate.
type UniformScaler struct{}

func (UniformScaler) ComputeScalingFactors(_ model.FederatedModel, participating map[string]model.LearnerState) map[string]float64 {
	factors := make(map[string]float64, len(participating))
	if len(participating) == 0 {
		return factors
	}
	weight := 1.0 / float64(len(participating))
	for id := range participating {
		factors[id] = weight
	}
	return factors
}
