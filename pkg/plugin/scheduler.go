package plugin

import (
	"sort"
	"sync"

	"github.com/fedgo/controller/pkg/model"
)

// SynchronousScheduler closes a round only once every currently-registered
// learner has completed a task in it, then returns every registered
// learner as the next round's participants. It is also installed for the
// semi-synchronous protocol, whose only difference (task-template
// re-templating) lives in the Round Engine, not here (spec.md §4.1).
//
// The scheduler tracks its own "who completed this round" set because its
// contract (ScheduleNext) is not handed the round-metadata rows the Round
// Engine maintains — only the id of the learner that just completed and a
// snapshot of all currently registered learners.
type SynchronousScheduler struct {
	mu        sync.Mutex
	completed map[string]struct{}
}

// NewSynchronousScheduler constructs a scheduler ready for the first round.
func NewSynchronousScheduler() *SynchronousScheduler {
	return &SynchronousScheduler{completed: make(map[string]struct{})}
}

func (s *SynchronousScheduler) ScheduleNext(justCompletedLearnerID string, _ model.CompletedLearningTask, allLearners []model.LearnerDescriptor) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed[justCompletedLearnerID] = struct{}{}

	if len(allLearners) == 0 || len(s.completed) < len(allLearners) {
		return nil
	}

	ids := make([]string, 0, len(allLearners))
	for _, l := range allLearners {
		ids = append(ids, l.ID)
	}
	sort.Strings(ids)

	s.completed = make(map[string]struct{})
	return ids
}

// AsynchronousScheduler never waits for a round to close: it always
// schedules the learner that just completed, immediately.
type AsynchronousScheduler struct{}

func (AsynchronousScheduler) ScheduleNext(justCompletedLearnerID string, _ model.CompletedLearningTask, _ []model.LearnerDescriptor) []string {
	return []string{justCompletedLearnerID}
}
