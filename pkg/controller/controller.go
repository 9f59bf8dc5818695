// Package controller assembles the Learner Registry, Lineage Store,
// Scheduling Pool, Remote Dispatcher, and Round Engine behind the single
// synchronous Controller Facade spec.md §4.5 and §6 specify.
package controller

import (
	"sync"

	"github.com/fedgo/controller/pkg/ctlerr"
	"github.com/fedgo/controller/pkg/dispatch"
	"github.com/fedgo/controller/pkg/lineage"
	"github.com/fedgo/controller/pkg/model"
	"github.com/fedgo/controller/pkg/pool"
	"github.com/fedgo/controller/pkg/registry"
	"github.com/fedgo/controller/pkg/round"
)

// Controller is the outward-facing object a process embeds: construct one,
// drive it through AddLearner/RemoveLearner/LearnerCompletedTask calls
// (typically from an RPC server's handlers), and call Shutdown exactly once
// when the process is done with it.
type Controller struct {
	registry   *registry.Registry
	lineage    *lineage.Store
	pool       *pool.Pool
	dispatcher *dispatch.Dispatcher
	engine     *round.Engine

	shutdownOnce sync.Once
}

// Options wires together an already-constructed Registry, Lineage Store,
// Scheduling Pool, Dispatcher, and Round Engine. Constructing these
// separately (rather than Controller doing it) keeps plug-in selection and
// YAML config parsing out of this package, per spec.md §1's scoping of
// process bootstrap and config parsing to the caller.
type Options struct {
	Registry   *registry.Registry
	Lineage    *lineage.Store
	Pool       *pool.Pool
	Dispatcher *dispatch.Dispatcher
	Engine     *round.Engine
}

// New assembles a Controller from already-constructed components.
func New(opts Options) *Controller {
	return &Controller{
		registry:   opts.Registry,
		lineage:    opts.Lineage,
		pool:       opts.Pool,
		dispatcher: opts.Dispatcher,
		engine:     opts.Engine,
	}
}

// AddLearner admits a new learner and enqueues its initial task dispatch on
// the Scheduling Pool, off the caller's goroutine.
func (c *Controller) AddLearner(ep model.Endpoint, spec model.DatasetSpec) (model.LearnerDescriptor, error) {
	descriptor, err := c.registry.AddLearner(ep, spec)
	if err != nil {
		return model.LearnerDescriptor{}, err
	}
	c.pool.Submit(func() {
		c.engine.ScheduleInitialTask(descriptor.ID)
	})
	return descriptor, nil
}

// RemoveLearner validates ownership and removes a learner's registry
// entry, task template, and connection handle.
func (c *Controller) RemoveLearner(id, token string) error {
	return c.registry.RemoveLearner(id, token)
}

// LearnerCompletedTask validates the caller, then enqueues the round
// transition on the Scheduling Pool. No lock is held across the enqueue
// (spec.md §4.5's table): the learners lock is acquired inside the pool
// job, by ScheduleTasks, so this call can acknowledge promptly.
func (c *Controller) LearnerCompletedTask(id, token string, task model.CompletedLearningTask) error {
	if err := c.registry.ValidateLearner(id, token); err != nil {
		return err
	}
	c.pool.Submit(func() {
		c.engine.ScheduleTasks(id, task)
	})
	return nil
}

// ReplaceCommunityModel installs m as the current community model under
// the community lock only.
func (c *Controller) ReplaceCommunityModel(m model.FederatedModel) {
	c.engine.ReplaceCommunityModel(m)
}

// CommunityModel returns a snapshot of the current community model.
func (c *Controller) CommunityModel() model.FederatedModel {
	return c.engine.CommunityModel()
}

// GetLearners returns a snapshot of every registered learner's descriptor.
func (c *Controller) GetLearners() []model.LearnerDescriptor {
	return c.registry.GetLearners()
}

// GetNumLearners returns the current registry size.
func (c *Controller) GetNumLearners() int {
	return c.registry.GetNumLearners()
}

// GetRuntimeMetadataLineage returns up to numSteps round-metadata rows,
// oldest first. 0 means "all rows"; an empty lineage returns nil, never an
// error.
func (c *Controller) GetRuntimeMetadataLineage(numSteps int) []model.FederatedTaskRuntimeMetadata {
	unlock := c.registry.Lock()
	defer unlock()
	return c.lineage.RuntimeMetadataLineage(numSteps)
}

// GetEvaluationLineage returns up to numSteps community-model evaluation
// rows, oldest first (see DESIGN.md for why oldest-first, not newest).
func (c *Controller) GetEvaluationLineage(numSteps int) []model.CommunityModelEvaluation {
	unlock := c.registry.Lock()
	defer unlock()
	return c.lineage.EvaluationLineage(numSteps)
}

// GetLocalTaskLineage returns up to numSteps execution-metadata entries for
// learnerID, newest first.
func (c *Controller) GetLocalTaskLineage(learnerID string, numSteps int) []model.ExecutionMetadata {
	unlock := c.registry.Lock()
	defer unlock()
	return c.lineage.LocalTaskLineage(learnerID, numSteps)
}

// Shutdown stops the dispatcher's two pipelines and drains the Scheduling
// Pool. Idempotent: a second call is a no-op. No method of Controller
// checks whether Shutdown has run, and none of them returns ErrShuttingDown.
func (c *Controller) Shutdown() {
	c.shutdownOnce.Do(func() {
		c.dispatcher.Shutdown()
		c.pool.Shutdown()
	})
}

// ErrShuttingDown is a sentinel a caller may compare against with
// errors.Is after Shutdown has been initiated, for ops that choose to
// check.
var ErrShuttingDown = ctlerr.Unavailable("controller is shutting down")
