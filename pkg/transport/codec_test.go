package transport

import "testing"

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}

	want := &RunTaskRequest{
		FederatedModel: FederatedModelWire{Weights: []float32{1, 2, 3}, GlobalIteration: 4, Initialized: true},
		Task:           Task{GlobalIteration: 4, NumLocalUpdates: 20},
		Hyperparameters: Hyperparameters{BatchSize: 10, Optimizer: "sgd"},
	}

	data, err := codec.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got RunTaskRequest
	if err := codec.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Task.NumLocalUpdates != want.Task.NumLocalUpdates {
		t.Errorf("Task.NumLocalUpdates = %d, want %d", got.Task.NumLocalUpdates, want.Task.NumLocalUpdates)
	}
	if len(got.FederatedModel.Weights) != 3 {
		t.Errorf("Weights len = %d, want 3", len(got.FederatedModel.Weights))
	}
	if got.Hyperparameters.Optimizer != "sgd" {
		t.Errorf("Optimizer = %q, want sgd", got.Hyperparameters.Optimizer)
	}
}

func TestJSONCodecName(t *testing.T) {
	if (jsonCodec{}).Name() != jsonCodecName {
		t.Errorf("Name() = %q, want %q", (jsonCodec{}).Name(), jsonCodecName)
	}
}

func TestJSONCodecUnmarshalError(t *testing.T) {
	var got RunTaskRequest
	if err := (jsonCodec{}).Unmarshal([]byte("{not json"), &got); err == nil {
		t.Error("expected an error unmarshaling invalid JSON")
	}
}
