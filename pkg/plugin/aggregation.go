package plugin

import (
	"fmt"

	"github.com/fedgo/controller/pkg/model"
)

// FedAvg is the weighted-average aggregation function: each contributor's
// weights are combined by its scaling factor. Grounded on the weighted
// branch of FedAvgAlgorithm.Aggregate in pkg/aggregator/algorithms.go,
// generalized to the (Model, factor) pair contract spec.md §4.1 specifies.
type FedAvg struct{}

func (FedAvg) Aggregate(inputs []WeightedInput) (model.FederatedModel, error) {
	if len(inputs) == 0 {
		return model.FederatedModel{}, fmt.Errorf("fedavg: no inputs to aggregate")
	}

	size := len(inputs[0].Model.Weights)
	acc := make([]float32, size)
	for _, in := range inputs {
		w := float32(in.Factor)
		for i, v := range in.Model.Weights {
			if i < size {
				acc[i] += w * v
			}
		}
	}

	return model.FederatedModel{
		Model:           model.Model{Weights: acc},
		NumContributors: uint32(len(inputs)),
		Initialized:     true,
	}, nil
}

// FHESchemeHandle is an opaque handle to a homomorphic-encryption scheme.
// PWA never inspects it; the HE codec itself is out of spec.md's scope
// (§1's "any homomorphic-encryption codec").
type FHESchemeHandle interface {
	// Name identifies the configured scheme for logging purposes only.
	Name() string
}

// PWA is the privacy-preserving weighted average: arithmetically identical
// to FedAvg from the Controller's point of view (it never performs HE
// operations itself — those belong to the out-of-scope codec the Scheme
// handle fronts), but it threads the configured scheme through so a real
// implementation can encrypt/decrypt around the same weighted-sum shape.
type PWA struct {
	Scheme FHESchemeHandle
}

func (p PWA) Aggregate(inputs []WeightedInput) (model.FederatedModel, error) {
	fm, err := FedAvg{}.Aggregate(inputs)
	if err != nil {
		return model.FederatedModel{}, fmt.Errorf("pwa: %w", err)
	}
	return fm, nil
}
