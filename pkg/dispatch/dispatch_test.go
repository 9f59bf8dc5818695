package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fedgo/controller/pkg/idgen"
	"github.com/fedgo/controller/pkg/lineage"
	"github.com/fedgo/controller/pkg/model"
	"github.com/fedgo/controller/pkg/registry"
	"github.com/fedgo/controller/pkg/transport"
)

type fakeConn struct{}

func (fakeConn) Close() error { return nil }

type fakeClient struct {
	evalResult *transport.EvaluateModelResponse
	evalErr    error
	runErr     error
}

func (c *fakeClient) RunTask(context.Context, *transport.RunTaskRequest) (*transport.RunTaskResponse, error) {
	if c.runErr != nil {
		return nil, c.runErr
	}
	return &transport.RunTaskResponse{Accepted: true}, nil
}

func (c *fakeClient) EvaluateModel(context.Context, *transport.EvaluateModelRequest) (*transport.EvaluateModelResponse, error) {
	if c.evalErr != nil {
		return nil, c.evalErr
	}
	return c.evalResult, nil
}

func (c *fakeClient) Close() error { return nil }

func newTestRegistryWithLearner(t *testing.T) (*registry.Registry, model.LearnerDescriptor) {
	t.Helper()
	minter, err := idgen.NewTokenMinter("secret")
	if err != nil {
		t.Fatalf("NewTokenMinter() error = %v", err)
	}
	reg := registry.New(registry.Options{
		Tokens:      minter,
		DialLearner: func(model.Endpoint) (registry.Conn, error) { return fakeConn{}, nil },
		Epochs:      1,
		BatchSize:   1,
	})
	descriptor, err := reg.AddLearner(model.Endpoint{Host: "learner-1", Port: 50051}, model.DatasetSpec{NumTrainingExamples: 10})
	if err != nil {
		t.Fatalf("AddLearner() error = %v", err)
	}
	return reg, descriptor
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestSendEvaluationTaskAsyncRecordsSuccessfulCompletion(t *testing.T) {
	reg, descriptor := newTestRegistryWithLearner(t)
	store := lineage.NewStore()

	client := &fakeClient{evalResult: &transport.EvaluateModelResponse{
		Training: transport.EvaluationResult{"accuracy": 0.9},
	}}
	d := New(reg, store, func(model.Endpoint) (transport.LearnerClient, error) { return client, nil }, 0)
	defer d.Shutdown()

	refIdx := store.AppendEvaluation(1)
	d.SendEvaluationTaskAsync([]string{descriptor.ID}, model.FederatedModel{}, 10, refIdx, map[string]model.Endpoint{descriptor.ID: descriptor.Endpoint})

	waitFor(t, func() bool {
		rows := store.EvaluationLineage(0)
		return len(rows) == 1 && len(rows[0].Evaluations) == 1
	})

	rows := store.EvaluationLineage(0)
	got := rows[0].Evaluations[descriptor.ID]
	if got.Training["accuracy"] != 0.9 {
		t.Errorf("recorded evaluation = %+v, want accuracy 0.9", got)
	}
}

func TestSendEvaluationTaskAsyncDiscardsFailure(t *testing.T) {
	reg, descriptor := newTestRegistryWithLearner(t)
	store := lineage.NewStore()

	client := &fakeClient{evalErr: errors.New("transport down")}
	d := New(reg, store, func(model.Endpoint) (transport.LearnerClient, error) { return client, nil }, 0)
	defer d.Shutdown()

	refIdx := store.AppendEvaluation(1)
	d.SendEvaluationTaskAsync([]string{descriptor.ID}, model.FederatedModel{}, 10, refIdx, map[string]model.Endpoint{descriptor.ID: descriptor.Endpoint})

	// Give the digest loop a chance to process the failure, then assert
	// nothing was recorded.
	time.Sleep(50 * time.Millisecond)

	rows := store.EvaluationLineage(0)
	if len(rows[0].Evaluations) != 0 {
		t.Errorf("expected no evaluation recorded on RPC failure, got %+v", rows[0].Evaluations)
	}
}

func TestSendEvaluationTaskAsyncSkipsRemovedLearner(t *testing.T) {
	reg, descriptor := newTestRegistryWithLearner(t)
	store := lineage.NewStore()

	var mu sync.Mutex
	release := make(chan struct{})
	client := &fakeClient{evalResult: &transport.EvaluateModelResponse{Training: transport.EvaluationResult{"accuracy": 1}}}

	dial := func(model.Endpoint) (transport.LearnerClient, error) {
		mu.Lock()
		defer mu.Unlock()
		<-release
		return client, nil
	}
	d := New(reg, store, dial, 0)
	defer d.Shutdown()

	refIdx := store.AppendEvaluation(1)
	d.SendEvaluationTaskAsync([]string{descriptor.ID}, model.FederatedModel{}, 10, refIdx, map[string]model.Endpoint{descriptor.ID: descriptor.Endpoint})

	if err := reg.RemoveLearner(descriptor.ID, descriptor.AuthToken); err != nil {
		t.Fatalf("RemoveLearner() error = %v", err)
	}
	close(release)

	time.Sleep(50 * time.Millisecond)
	rows := store.EvaluationLineage(0)
	if len(rows[0].Evaluations) != 0 {
		t.Errorf("expected the digest loop to skip a learner removed mid-flight, got %+v", rows[0].Evaluations)
	}
}
