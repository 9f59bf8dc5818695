// Package round implements the Round Engine: the state machine turning "a
// learner has completed a task" into select participants → aggregate →
// evaluate → dispatch next round (spec.md §4.4). Both entry points run on
// the Scheduling Pool, never on the caller's goroutine.
package round

import (
	"log"
	"math"
	"sync"

	"github.com/fedgo/controller/pkg/dispatch"
	"github.com/fedgo/controller/pkg/lineage"
	"github.com/fedgo/controller/pkg/model"
	"github.com/fedgo/controller/pkg/plugin"
	"github.com/fedgo/controller/pkg/registry"
	"github.com/fedgo/controller/pkg/transport"
)

// Options configures a new Engine.
type Options struct {
	Registry   *registry.Registry
	Lineage    *lineage.Store
	Dispatcher *dispatch.Dispatcher

	Scheduler  plugin.Scheduler
	Selector   plugin.Selector
	Scaler     plugin.ScalingFunction
	Aggregator plugin.AggregationFunction

	Hyperparams       transport.Hyperparameters
	PercentValidation float32
	BatchSize         uint32

	SemiSync          bool
	SemiSyncLambda    float32
	SemiSyncRecompute bool
}

// Engine drives round transitions. It owns the community model and
// global_iteration; the registry owns everything else the learners lock
// guards.
type Engine struct {
	registry   *registry.Registry
	lineage    *lineage.Store
	dispatcher *dispatch.Dispatcher

	scheduler  plugin.Scheduler
	selector   plugin.Selector
	scaler     plugin.ScalingFunction
	aggregator plugin.AggregationFunction

	hyperparams       transport.Hyperparameters
	percentValidation float32
	batchSize         uint32

	semiSync          bool
	semiSyncLambda    float32
	semiSyncRecompute bool

	// communityMu guards community independently of the registry's learners
	// lock, per spec.md §5: ReplaceCommunityModel takes only this lock;
	// round-engine writes (inside ScheduleTasks) take both, since they
	// mutate state the learners lock also documents as covering.
	communityMu sync.RWMutex
	community   model.FederatedModel

	// globalIteration is mutated only while the registry's learners lock is
	// held, inside ScheduleInitialTask/ScheduleTasks.
	globalIteration uint32
}

// New constructs an Engine ready to drive rounds. The community model
// starts uninitialized; seed it via ReplaceCommunityModel before admitting
// learners if cold-start admission should immediately dispatch.
func New(opts Options) *Engine {
	return &Engine{
		registry:          opts.Registry,
		lineage:           opts.Lineage,
		dispatcher:        opts.Dispatcher,
		scheduler:         opts.Scheduler,
		selector:          opts.Selector,
		scaler:            opts.Scaler,
		aggregator:        opts.Aggregator,
		hyperparams:       opts.Hyperparams,
		percentValidation: opts.PercentValidation,
		batchSize:         opts.BatchSize,
		semiSync:          opts.SemiSync,
		semiSyncLambda:    opts.SemiSyncLambda,
		semiSyncRecompute: opts.SemiSyncRecompute,
	}
}

// CommunityModel returns a snapshot of the current community model.
func (e *Engine) CommunityModel() model.FederatedModel {
	e.communityMu.RLock()
	defer e.communityMu.RUnlock()
	return e.community
}

// ReplaceCommunityModel installs m as the community model, guarded by the
// community lock only (spec.md §4.5's ReplaceCommunityModel row).
func (e *Engine) ReplaceCommunityModel(m model.FederatedModel) {
	e.communityMu.Lock()
	defer e.communityMu.Unlock()
	e.community = m
}

// GlobalIteration returns the current round counter. Exposed for
// observability; the Controller Facade itself does not surface it
// directly (spec.md §4.5's table has no such reader), only the lineage
// queries that imply it.
func (e *Engine) GlobalIteration() uint32 {
	unlock := e.registry.Lock()
	defer unlock()
	return e.globalIteration
}

// ScheduleInitialTask dispatches the first RunTask to a newly admitted
// learner. If the community model is not yet initialized it returns
// silently: admission during cold start must not crash or dispatch
// (spec.md §4.4, scenario S6).
func (e *Engine) ScheduleInitialTask(learnerID string) {
	e.communityMu.RLock()
	cm := e.community
	e.communityMu.RUnlock()
	if !cm.Initialized {
		return
	}

	unlock := e.registry.Lock()
	if e.lineage.RoundCount() == 0 {
		e.globalIteration = 1
		e.lineage.AppendRound(model.FederatedTaskRuntimeMetadata{
			GlobalIteration: e.globalIteration,
			StartedAt:       lineage.Now(),
		})
	}
	if row, ok := e.lineage.RoundAt(e.lineage.RoundCount() - 1); ok {
		row.AssignedToLearnerID = append(row.AssignedToLearnerID, learnerID)
	}
	endpoints := e.endpointsLocked([]string{learnerID})
	templates := map[string]model.LearningTaskTemplate{learnerID: e.registry.TaskTemplate(learnerID)}
	unlock()

	e.dispatcher.SendRunTaskAsync([]string{learnerID}, cm, e.hyperparams, e.percentValidation, templates, endpoints)
}

// ScheduleTasks processes one learner's reported completion, closing and
// advancing a round whenever the installed Scheduler says one has closed
// (spec.md §4.4).
func (e *Engine) ScheduleTasks(completedID string, task model.CompletedLearningTask) {
	gCompleted := task.ExecutionMetadata.GlobalIteration
	idx := int(gCompleted) - 1
	if idx < 0 {
		idx = 0
	}

	unlock := e.registry.Lock()

	if row, ok := e.lineage.RoundAt(idx); ok {
		row.CompletedByLearnerID = append(row.CompletedByLearnerID, completedID)
	}
	e.registry.SetLatestModel(completedID, task.Model)
	e.lineage.PrependLocalTask(completedID, task.ExecutionMetadata)

	allLearners := e.registry.LearnersSnapshotLocked()
	toSchedule := e.scheduler.ScheduleNext(completedID, task, allLearners)
	if len(toSchedule) == 0 {
		unlock()
		return
	}

	if row, ok := e.lineage.RoundAt(idx); ok {
		row.CompletedAt = lineage.Now()
	}

	selected := e.selector.Select(toSchedule, allLearners)
	participating := make(map[string]model.LearnerState, len(selected))
	for _, id := range selected {
		st, ok := e.registry.State(id)
		if !ok {
			continue
		}
		if _, has := st.LatestModel(); has {
			participating[id] = *st
		}
	}

	newCM, aggErr := e.computeCommunityModel(participating)
	if aggErr != nil {
		unlock()
		log.Printf("round: aggregation failed for learner %s, aborting transition: %v", completedID, aggErr)
		return
	}
	newCM.GlobalIteration = gCompleted

	e.communityMu.Lock()
	e.community = newCM
	e.communityMu.Unlock()

	refIdx := e.lineage.AppendEvaluation(gCompleted)
	evalEndpoints := e.endpointsLocked(toSchedule)
	e.dispatcher.SendEvaluationTaskAsync(toSchedule, newCM, e.batchSize, refIdx, evalEndpoints)

	e.globalIteration = gCompleted + 1
	e.lineage.AppendRound(model.FederatedTaskRuntimeMetadata{
		GlobalIteration:     e.globalIteration,
		StartedAt:           lineage.Now(),
		AssignedToLearnerID: append([]string(nil), toSchedule...),
	})

	if e.semiSync && (e.globalIteration == 2 || e.semiSyncRecompute) {
		e.retemplateLocked(toSchedule)
	}

	templates := make(map[string]model.LearningTaskTemplate, len(toSchedule))
	for _, id := range toSchedule {
		templates[id] = e.registry.TaskTemplate(id)
	}
	runEndpoints := e.endpointsLocked(toSchedule)

	unlock()

	e.dispatcher.SendRunTaskAsync(toSchedule, newCM, e.hyperparams, e.percentValidation, templates, runEndpoints)
}

// computeCommunityModel applies the cold-round shortcut, then the
// scale+aggregate pipeline. Must be called while holding the registry's
// learners lock.
func (e *Engine) computeCommunityModel(participating map[string]model.LearnerState) (model.FederatedModel, error) {
	e.communityMu.RLock()
	current := e.community
	e.communityMu.RUnlock()

	if e.globalIteration < 2 && current.Initialized {
		return current, nil
	}

	factors := e.scaler.ComputeScalingFactors(current, participating)
	inputs := make([]plugin.WeightedInput, 0, len(participating))
	for id, st := range participating {
		latest, _ := st.LatestModel()
		inputs = append(inputs, plugin.WeightedInput{Model: &latest, Factor: factors[id]})
	}
	return e.aggregator.Aggregate(inputs)
}

// retemplateLocked recomputes num_local_updates for every id in ids from
// the slowest observed processing_ms_per_epoch among them (spec.md §4.4's
// semi-synchronous formula). Must be called while holding the registry's
// learners lock.
func (e *Engine) retemplateLocked(ids []string) {
	var slowestMsPerEpoch float32
	msPerBatch := make(map[string]float32, len(ids))
	for _, id := range ids {
		exec, ok := e.lineage.LatestLocalTask(id)
		if !ok {
			continue
		}
		msPerBatch[id] = exec.ProcessingMsPerBatch
		if exec.ProcessingMsPerEpoch > slowestMsPerEpoch {
			slowestMsPerEpoch = exec.ProcessingMsPerEpoch
		}
	}

	tMax := e.semiSyncLambda * slowestMsPerEpoch
	for _, id := range ids {
		perBatch, ok := msPerBatch[id]
		if !ok || perBatch <= 0 {
			continue
		}
		numUpdates := uint32(math.Ceil(float64(tMax / perBatch)))
		e.registry.SetTaskTemplate(id, model.LearningTaskTemplate{NumLocalUpdates: numUpdates})
	}
}

// endpointsLocked reads endpoints for ids. Must be called while holding the
// registry's learners lock.
func (e *Engine) endpointsLocked(ids []string) map[string]model.Endpoint {
	out := make(map[string]model.Endpoint, len(ids))
	for _, id := range ids {
		if st, ok := e.registry.State(id); ok {
			out[id] = st.Descriptor.Endpoint
		}
	}
	return out
}
