// Package dispatch implements the Remote Dispatcher: two long-lived,
// independent completion-queue pipelines — run_tasks and eval_tasks — each
// with a non-blocking submission side and a single digest goroutine
// draining completions in FIFO completion order (spec.md §4.3).
package dispatch

import (
	"context"
	"log"

	"github.com/fedgo/controller/pkg/lineage"
	"github.com/fedgo/controller/pkg/model"
	"github.com/fedgo/controller/pkg/registry"
	"github.com/fedgo/controller/pkg/transport"
)

// ClientFactory dials a fresh LearnerClient for an endpoint. One dial per
// call mirrors the reference controller's per-call stub allocation
// (spec.md §9's documented latency rationale for not reusing channels).
type ClientFactory func(model.Endpoint) (transport.LearnerClient, error)

// Dispatcher owns the run_tasks and eval_tasks pipelines. One Dispatcher is
// shared by every round transition the Round Engine drives.
type Dispatcher struct {
	registry *registry.Registry
	lineage  *lineage.Store
	dial     ClientFactory

	run  *completionQueue[*transport.RunTaskResponse]
	eval *completionQueue[*transport.EvaluateModelResponse]
}

// New constructs a Dispatcher and starts its two digest goroutines.
// bufferSize bounds each pipeline's completion channel; <=0 picks a
// default.
func New(reg *registry.Registry, store *lineage.Store, dial ClientFactory, bufferSize int) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		lineage:  store,
		dial:     dial,
		run:      newCompletionQueue[*transport.RunTaskResponse](bufferSize),
		eval:     newCompletionQueue[*transport.EvaluateModelResponse](bufferSize),
	}
	go d.digestRun()
	go d.digestEval()
	return d
}

// SendRunTaskAsync fans a RunTask out to every id in learnerIDs, each
// carrying the current community model and that learner's own task
// template. Submission never blocks on the network.
func (d *Dispatcher) SendRunTaskAsync(learnerIDs []string, cm model.FederatedModel, hp transport.Hyperparameters, percentValidation float32, templates map[string]model.LearningTaskTemplate, endpoints map[string]model.Endpoint) {
	wireCM := toWireModel(cm)
	for _, id := range learnerIDs {
		id := id
		ep := endpoints[id]
		req := &transport.RunTaskRequest{
			FederatedModel: wireCM,
			Task: transport.Task{
				GlobalIteration:   cm.GlobalIteration,
				NumLocalUpdates:   templates[id].NumLocalUpdates,
				PercentValidation: percentValidation,
			},
			Hyperparameters: hp,
		}
		d.run.submit(id, 0, func() (*transport.RunTaskResponse, error) {
			return d.callRunTask(ep, req)
		})
	}
}

func (d *Dispatcher) callRunTask(ep model.Endpoint, req *transport.RunTaskRequest) (*transport.RunTaskResponse, error) {
	client, err := d.dial(ep)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.RunTask(context.Background(), req)
}

// SendEvaluationTaskAsync fans an EvaluateModel out to every id in
// learnerIDs, tagging each call with refIdx — the community-evaluation row
// its result correlates back to.
func (d *Dispatcher) SendEvaluationTaskAsync(learnerIDs []string, cm model.FederatedModel, batchSize uint32, refIdx int, endpoints map[string]model.Endpoint) {
	req := &transport.EvaluateModelRequest{
		Model:             toWireModel(cm),
		BatchSize:         batchSize,
		EvaluationDataset: []transport.EvaluationDataset{transport.DatasetTraining, transport.DatasetValidation, transport.DatasetTest},
	}
	for _, id := range learnerIDs {
		id := id
		ep := endpoints[id]
		d.eval.submit(id, refIdx, func() (*transport.EvaluateModelResponse, error) {
			return d.callEvaluateModel(ep, req)
		})
	}
}

func (d *Dispatcher) callEvaluateModel(ep model.Endpoint, req *transport.EvaluateModelRequest) (*transport.EvaluateModelResponse, error) {
	client, err := d.dial(ep)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.EvaluateModel(context.Background(), req)
}

func (d *Dispatcher) digestRun() {
	for {
		c, ok := d.run.next()
		if !ok {
			return
		}
		if c.err != nil {
			log.Printf("dispatch: RunTask to learner %s failed: %v", c.learnerID, c.err)
		}
		// Training success is observed via the inbound LearnerCompletedTask
		// call, not this reply, so a successful completion is a no-op here.
	}
}

func (d *Dispatcher) digestEval() {
	for {
		c, ok := d.eval.next()
		if !ok {
			return
		}
		if c.err != nil {
			log.Printf("dispatch: EvaluateModel to learner %s failed: %v", c.learnerID, c.err)
			continue
		}

		unlock := d.registry.Lock()
		if _, exists := d.registry.State(c.learnerID); exists {
			d.lineage.RecordEvaluation(c.refIdx, c.learnerID, model.EvaluationTriple{
				Training:   c.result.Training,
				Validation: c.result.Validation,
				Test:       c.result.Test,
			})
		}
		unlock()
	}
}

// Shutdown stops both pipelines: submissions after this point are dropped,
// calls already in flight are waited for but their results are discarded
// rather than digested, and both digest goroutines exit once the results
// posted before Shutdown have been drained.
func (d *Dispatcher) Shutdown() {
	d.run.shutdown()
	d.eval.shutdown()
}

func toWireModel(fm model.FederatedModel) transport.FederatedModelWire {
	return transport.FederatedModelWire{
		Weights:         fm.Model.Weights,
		NumContributors: fm.NumContributors,
		GlobalIteration: fm.GlobalIteration,
		Initialized:     fm.Initialized,
	}
}
