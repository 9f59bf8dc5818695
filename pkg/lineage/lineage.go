// Package lineage implements the three append-only sequences the Controller
// keeps: round-metadata runtime rows, community-model evaluations, and
// per-learner local-task execution metadata (spec.md §3, §4.4).
//
// None of these types take their own lock — callers (pkg/round,
// pkg/controller) are expected to hold the learners lock while mutating
// them, per spec.md §5's shared-resource policy. Lineage only provides the
// append-only data structure and the "lineage head" read semantics.
package lineage

import (
	"time"

	"github.com/fedgo/controller/pkg/model"
)

// Store holds the three lineages. Zero value is ready to use.
type Store struct {
	metadata    []model.FederatedTaskRuntimeMetadata
	evaluations []model.CommunityModelEvaluation
	localTasks  map[string][]model.ExecutionMetadata // newest-first per learner
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{localTasks: make(map[string][]model.ExecutionMetadata)}
}

// AppendRound appends a new round-metadata row and returns its index.
func (s *Store) AppendRound(row model.FederatedTaskRuntimeMetadata) int {
	s.metadata = append(s.metadata, row)
	return len(s.metadata) - 1
}

// RoundCount reports how many round-metadata rows exist.
func (s *Store) RoundCount() int { return len(s.metadata) }

// RoundAt returns a pointer to the row at idx for in-place mutation
// (appending a learner id, stamping CompletedAt). The caller must already
// hold the learners lock. ok is false if idx is out of range.
func (s *Store) RoundAt(idx int) (row *model.FederatedTaskRuntimeMetadata, ok bool) {
	if idx < 0 || idx >= len(s.metadata) {
		return nil, false
	}
	return &s.metadata[idx], true
}

// RuntimeMetadataLineage returns up to numSteps rows, oldest first. Zero
// means "all rows". This matches what the original controller actually
// does (push_back + begin()-forward iteration), not what its own comment
// claimed about insertions at the head — see spec.md §9 / SPEC_FULL.md §10.
func (s *Store) RuntimeMetadataLineage(numSteps int) []model.FederatedTaskRuntimeMetadata {
	return headCopy(s.metadata, numSteps)
}

// AppendEvaluation appends a new, empty community-model evaluation row and
// returns its index (the ref_idx used to correlate EvaluateModel
// completions back to this row).
func (s *Store) AppendEvaluation(globalIteration uint32) int {
	s.evaluations = append(s.evaluations, model.CommunityModelEvaluation{
		GlobalIteration: globalIteration,
		Evaluations:     make(map[string]model.EvaluationTriple),
	})
	return len(s.evaluations) - 1
}

// RecordEvaluation inserts learnerID's evaluation triple into the row at
// refIdx. A given evaluation RPC is dispatched once per (refIdx,
// learnerID) pair by construction (spec.md §5), so no additional
// synchronization is required beyond the caller holding the learners lock.
func (s *Store) RecordEvaluation(refIdx int, learnerID string, triple model.EvaluationTriple) bool {
	if refIdx < 0 || refIdx >= len(s.evaluations) {
		return false
	}
	s.evaluations[refIdx].Evaluations[learnerID] = triple
	return true
}

// EvaluationLineage returns up to numSteps evaluation rows, oldest first.
func (s *Store) EvaluationLineage(numSteps int) []model.CommunityModelEvaluation {
	return headCopy(s.evaluations, numSteps)
}

// PrependLocalTask inserts execMeta at the front of learnerID's local-task
// lineage (newest-first), preserving the order ScheduleTasks jobs are
// processed by the scheduling pool.
func (s *Store) PrependLocalTask(learnerID string, execMeta model.ExecutionMetadata) {
	list := s.localTasks[learnerID]
	list = append(list, model.ExecutionMetadata{})
	copy(list[1:], list)
	list[0] = execMeta
	s.localTasks[learnerID] = list
}

// LocalTaskLineage returns up to numSteps entries for learnerID,
// newest-first. Zero means "all entries".
func (s *Store) LocalTaskLineage(learnerID string, numSteps int) []model.ExecutionMetadata {
	return headCopy(s.localTasks[learnerID], numSteps)
}

// LatestLocalTask returns the most recently recorded execution metadata
// for learnerID, if any.
func (s *Store) LatestLocalTask(learnerID string) (model.ExecutionMetadata, bool) {
	list := s.localTasks[learnerID]
	if len(list) == 0 {
		return model.ExecutionMetadata{}, false
	}
	return list[0], true
}

// Now is overridable in tests; defaults to time.Now.
var Now = time.Now

func headCopy[T any](src []T, numSteps int) []T {
	if len(src) == 0 {
		return nil
	}
	n := len(src)
	if numSteps > 0 && numSteps < n {
		n = numSteps
	}
	out := make([]T, n)
	copy(out, src[:n])
	return out
}
