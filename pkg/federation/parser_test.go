package federation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParamsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "controller.yaml")

	want := &ControllerParams{
		ModelHyperparams: ModelHyperparams{BatchSize: 10, Epochs: 2, Optimizer: "sgd", PercentValidation: 0.1},
		GlobalModelSpecs: GlobalModelSpecs{AggregationRule: AggregationFedAvg},
		CommunicationSpecs: CommunicationSpecs{
			Protocol:      ProtocolSemiSynchronous,
			ProtocolSpecs: ProtocolSpecs{SemiSyncLambda: 2, SemiSyncRecomputeNumUpdates: true},
		},
		SchedulingPoolSize: 4,
		PipelineBufferSize: 128,
	}

	if err := SaveParams(want, path); err != nil {
		t.Fatalf("SaveParams() error = %v", err)
	}

	got, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams() error = %v", err)
	}

	if got.ModelHyperparams != want.ModelHyperparams {
		t.Errorf("ModelHyperparams = %+v, want %+v", got.ModelHyperparams, want.ModelHyperparams)
	}
	if got.CommunicationSpecs.Protocol != want.CommunicationSpecs.Protocol {
		t.Errorf("Protocol = %v, want %v", got.CommunicationSpecs.Protocol, want.CommunicationSpecs.Protocol)
	}
	if got.SchedulingPoolSize != want.SchedulingPoolSize {
		t.Errorf("SchedulingPoolSize = %d, want %d", got.SchedulingPoolSize, want.SchedulingPoolSize)
	}
}

func TestLoadParamsRejectsPathTraversal(t *testing.T) {
	_, err := LoadParams("../../../etc/passwd.yaml")
	if err == nil {
		t.Errorf("expected an error for a path traversal attempt")
	}
}

func TestLoadParamsRejectsNonYAMLExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "controller.txt")
	if err := os.WriteFile(path, []byte("model_hyperparams: {}"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := LoadParams(path)
	if err == nil {
		t.Errorf("expected an error for a non-YAML extension")
	}
}

func TestLoadParamsMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadParams(filepath.Join(dir, "missing.yaml"))
	if err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
