// Package registry implements the Learner Registry: the synchronous,
// lock-guarded mapping from learner id to descriptor, task template,
// connection handle, and submitted-model history (spec.md §3, §4.2).
package registry

import (
	"sync"

	"github.com/fedgo/controller/pkg/ctlerr"
	"github.com/fedgo/controller/pkg/idgen"
	"github.com/fedgo/controller/pkg/model"
)

// Conn is the connection handle a learner is associated with. The registry
// only owns its lifecycle (open on admission, close on removal); it never
// inspects it. A concrete gRPC connection is provided by pkg/transport.
type Conn interface {
	Close() error
}

// Registry is the synchronous learner registry. It owns three maps that
// must share an identical key set at all observable points (spec.md
// invariant 2): learners, task templates, and connection handles.
type Registry struct {
	mu sync.RWMutex

	learners      map[string]*model.LearnerState
	taskTemplates map[string]model.LearningTaskTemplate
	conns         map[string]Conn

	tokens     *idgen.TokenMinter
	dialLearner func(model.Endpoint) (Conn, error)

	hyperparamEpochs    uint32
	hyperparamBatchSize uint32
}

// Options configures a new Registry.
type Options struct {
	Tokens       *idgen.TokenMinter
	DialLearner  func(model.Endpoint) (Conn, error)
	Epochs       uint32
	BatchSize    uint32
}

// New constructs an empty Registry.
func New(opts Options) *Registry {
	return &Registry{
		learners:            make(map[string]*model.LearnerState),
		taskTemplates:       make(map[string]model.LearningTaskTemplate),
		conns:               make(map[string]Conn),
		tokens:              opts.Tokens,
		dialLearner:         opts.DialLearner,
		hyperparamEpochs:    opts.Epochs,
		hyperparamBatchSize: opts.BatchSize,
	}
}

// AddLearner validates and admits a new learner, opening its connection
// handle and initializing its task template. The RPC connection is opened
// eagerly here but its reachability is never checked — admission must
// never block on remote availability (spec.md §4.2).
func (r *Registry) AddLearner(ep model.Endpoint, spec model.DatasetSpec) (model.LearnerDescriptor, error) {
	if ep.Host == "" || ep.Port < 0 {
		return model.LearnerDescriptor{}, ctlerr.InvalidArgument("hostname and port must be provided")
	}
	if spec.NumTrainingExamples == 0 {
		return model.LearnerDescriptor{}, ctlerr.InvalidArgument("learner training examples must be > 0")
	}

	id := idgen.GenerateLearnerID(ep)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.learners[id]; exists {
		return model.LearnerDescriptor{}, ctlerr.AlreadyExists("learner has already joined")
	}

	token, err := r.tokens.Mint(id)
	if err != nil {
		return model.LearnerDescriptor{}, ctlerr.Internal("failed to mint auth token: " + err.Error())
	}

	descriptor := model.LearnerDescriptor{
		ID:          id,
		AuthToken:   token,
		Endpoint:    ep,
		DatasetSpec: spec,
	}

	stepsPerEpoch := uint32(0)
	if r.hyperparamBatchSize > 0 {
		stepsPerEpoch = spec.NumTrainingExamples / r.hyperparamBatchSize
	}
	template := model.LearningTaskTemplate{NumLocalUpdates: r.hyperparamEpochs * stepsPerEpoch}

	var conn Conn
	if r.dialLearner != nil {
		// Errors opening the connection are not fatal to admission — a
		// persistently unreachable learner simply never completes a task.
		conn, _ = r.dialLearner(ep)
	}

	r.learners[id] = &model.LearnerState{Descriptor: descriptor}
	r.taskTemplates[id] = template
	r.conns[id] = conn

	return descriptor, nil
}

// RemoveLearner validates ownership and removes a learner's registry
// entry, task template, and connection handle atomically. Unlike
// ValidateLearner (used by LearnerCompletedTask), a token mismatch here is
// reported as Unauthenticated, matching spec.md's error table for this
// operation specifically.
func (r *Registry) RemoveLearner(id, token string) error {
	if id == "" || token == "" {
		return ctlerr.InvalidArgument("learner id and token cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.learners[id]
	if !ok {
		return ctlerr.NotFound("learner is not part of the federation")
	}
	if state.Descriptor.AuthToken != token {
		return ctlerr.Unauthenticated("learner token is wrong")
	}

	if conn, ok := r.conns[id]; ok && conn != nil {
		_ = conn.Close()
	}
	delete(r.learners, id)
	delete(r.taskTemplates, id)
	delete(r.conns, id)
	return nil
}

// ValidateLearner checks id/token shape and ownership for operations whose
// contract maps a mismatch onto PermissionDenied (LearnerCompletedTask).
func (r *Registry) ValidateLearner(id, token string) error {
	if id == "" || token == "" {
		return ctlerr.InvalidArgument("learner id and token cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.learners[id]
	if !ok {
		return ctlerr.NotFound("learner does not exist")
	}
	if state.Descriptor.AuthToken != token {
		return ctlerr.PermissionDenied("invalid token provided")
	}
	return nil
}

// GetLearners returns a snapshot copy of every registered descriptor.
func (r *Registry) GetLearners() []model.LearnerDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.LearnerDescriptor, 0, len(r.learners))
	for _, state := range r.learners {
		out = append(out, state.Descriptor)
	}
	return out
}

// GetNumLearners returns the current registry size.
func (r *Registry) GetNumLearners() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.learners)
}

// Lock acquires the registry's write lock for the duration of a Round
// Engine transition; callers must call the returned unlock exactly once.
// This is how pkg/round's ScheduleTasks gets the single critical section
// spec.md §4.4 requires across reads of learner state, task templates, and
// global iteration.
func (r *Registry) Lock() (unlock func()) {
	r.mu.Lock()
	return r.mu.Unlock
}

// State returns the live LearnerState for id (not a copy) for use only
// while the caller holds Lock(). ok is false if id is not registered.
func (r *Registry) State(id string) (state *model.LearnerState, ok bool) {
	state, ok = r.learners[id]
	return state, ok
}

// SetLatestModel replaces a learner's single-element model history. Must
// be called while holding Lock().
func (r *Registry) SetLatestModel(id string, m model.Model) {
	if state, ok := r.learners[id]; ok {
		state.Model = []model.Model{m}
	}
}

// TaskTemplate returns the current task template for id. Must be called
// while holding Lock() for a consistent read alongside other round state.
func (r *Registry) TaskTemplate(id string) model.LearningTaskTemplate {
	return r.taskTemplates[id]
}

// SetTaskTemplate overwrites the task template for id (used by
// semi-synchronous re-templating). Must be called while holding Lock().
func (r *Registry) SetTaskTemplate(id string, t model.LearningTaskTemplate) {
	if _, ok := r.learners[id]; ok {
		r.taskTemplates[id] = t
	}
}

// LearnersSnapshotLocked returns descriptors without acquiring a lock,
// for use by callers that already hold Lock().
func (r *Registry) LearnersSnapshotLocked() []model.LearnerDescriptor {
	out := make([]model.LearnerDescriptor, 0, len(r.learners))
	for _, state := range r.learners {
		out = append(out, state.Descriptor)
	}
	return out
}
