package registry

import (
	"errors"
	"testing"

	"github.com/fedgo/controller/pkg/ctlerr"
	"github.com/fedgo/controller/pkg/idgen"
	"github.com/fedgo/controller/pkg/model"
)

type fakeConn struct{ closed bool }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	minter, err := idgen.NewTokenMinter("test-secret")
	if err != nil {
		t.Fatalf("NewTokenMinter() error = %v", err)
	}
	return New(Options{
		Tokens:      minter,
		DialLearner: func(model.Endpoint) (Conn, error) { return &fakeConn{}, nil },
		Epochs:      2,
		BatchSize:   10,
	})
}

func TestAddLearnerValidation(t *testing.T) {
	tests := []struct {
		name string
		ep   model.Endpoint
		spec model.DatasetSpec
	}{
		{"empty host", model.Endpoint{Port: 1}, model.DatasetSpec{NumTrainingExamples: 1}},
		{"negative port", model.Endpoint{Host: "h", Port: -1}, model.DatasetSpec{NumTrainingExamples: 1}},
		{"zero training examples", model.Endpoint{Host: "h", Port: 1}, model.DatasetSpec{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t)
			_, err := r.AddLearner(tt.ep, tt.spec)
			if ctlerr.KindOf(err) != ctlerr.KindInvalidArgument {
				t.Errorf("AddLearner() error kind = %v, want InvalidArgument", ctlerr.KindOf(err))
			}
		})
	}
}

func TestAddLearnerComputesTaskTemplate(t *testing.T) {
	r := newTestRegistry(t)
	ep := model.Endpoint{Host: "learner-1", Port: 50051}
	spec := model.DatasetSpec{NumTrainingExamples: 100}

	descriptor, err := r.AddLearner(ep, spec)
	if err != nil {
		t.Fatalf("AddLearner() error = %v", err)
	}

	unlock := r.Lock()
	template := r.TaskTemplate(descriptor.ID)
	unlock()

	// epochs=2, batch_size=10 -> steps_per_epoch=10 -> num_local_updates=20
	if template.NumLocalUpdates != 20 {
		t.Errorf("NumLocalUpdates = %d, want 20", template.NumLocalUpdates)
	}
}

func TestAddLearnerDuplicateEndpoint(t *testing.T) {
	r := newTestRegistry(t)
	ep := model.Endpoint{Host: "learner-1", Port: 50051}
	spec := model.DatasetSpec{NumTrainingExamples: 100}

	if _, err := r.AddLearner(ep, spec); err != nil {
		t.Fatalf("first AddLearner() error = %v", err)
	}

	_, err := r.AddLearner(ep, spec)
	if ctlerr.KindOf(err) != ctlerr.KindAlreadyExists {
		t.Errorf("second AddLearner() error kind = %v, want AlreadyExists", ctlerr.KindOf(err))
	}
	if r.GetNumLearners() != 1 {
		t.Errorf("GetNumLearners() = %d, want 1", r.GetNumLearners())
	}
}

func TestRemoveLearnerWrongTokenReturnsUnauthenticated(t *testing.T) {
	r := newTestRegistry(t)
	descriptor, err := r.AddLearner(model.Endpoint{Host: "learner-1", Port: 50051}, model.DatasetSpec{NumTrainingExamples: 10})
	if err != nil {
		t.Fatalf("AddLearner() error = %v", err)
	}

	err = r.RemoveLearner(descriptor.ID, "wrong-token")
	if ctlerr.KindOf(err) != ctlerr.KindUnauthenticated {
		t.Errorf("RemoveLearner() error kind = %v, want Unauthenticated", ctlerr.KindOf(err))
	}
	if r.GetNumLearners() != 1 {
		t.Errorf("GetNumLearners() = %d, want 1 (learner must still be registered)", r.GetNumLearners())
	}
}

func TestRemoveLearnerSucceedsAndClosesConn(t *testing.T) {
	var conn *fakeConn
	minter, _ := idgen.NewTokenMinter("test-secret")
	r := New(Options{
		Tokens: minter,
		DialLearner: func(model.Endpoint) (Conn, error) {
			conn = &fakeConn{}
			return conn, nil
		},
		Epochs:    1,
		BatchSize: 1,
	})

	descriptor, err := r.AddLearner(model.Endpoint{Host: "learner-1", Port: 50051}, model.DatasetSpec{NumTrainingExamples: 10})
	if err != nil {
		t.Fatalf("AddLearner() error = %v", err)
	}

	if err := r.RemoveLearner(descriptor.ID, descriptor.AuthToken); err != nil {
		t.Fatalf("RemoveLearner() error = %v", err)
	}
	if r.GetNumLearners() != 0 {
		t.Errorf("GetNumLearners() = %d, want 0", r.GetNumLearners())
	}
	if conn == nil || !conn.closed {
		t.Errorf("expected the connection handle to be closed on removal")
	}
}

func TestValidateLearnerMismatchIsPermissionDenied(t *testing.T) {
	r := newTestRegistry(t)
	descriptor, _ := r.AddLearner(model.Endpoint{Host: "learner-1", Port: 50051}, model.DatasetSpec{NumTrainingExamples: 10})

	err := r.ValidateLearner(descriptor.ID, "wrong-token")
	if ctlerr.KindOf(err) != ctlerr.KindPermissionDenied {
		t.Errorf("ValidateLearner() error kind = %v, want PermissionDenied (differs from RemoveLearner by design)", ctlerr.KindOf(err))
	}
}

func TestValidateLearnerUnknownID(t *testing.T) {
	r := newTestRegistry(t)
	err := r.ValidateLearner("does-not-exist", "tok")
	if !errors.Is(err, ctlerr.NotFound("")) {
		t.Errorf("ValidateLearner() error = %v, want NotFound", err)
	}
}

func TestKeySetsStayInSyncAfterAddAndRemove(t *testing.T) {
	r := newTestRegistry(t)
	descriptor, err := r.AddLearner(model.Endpoint{Host: "learner-1", Port: 50051}, model.DatasetSpec{NumTrainingExamples: 10})
	if err != nil {
		t.Fatalf("AddLearner() error = %v", err)
	}

	unlock := r.Lock()
	_, hasState := r.State(descriptor.ID)
	_, hasTemplate := r.taskTemplates[descriptor.ID]
	_, hasConn := r.conns[descriptor.ID]
	unlock()

	if !hasState || !hasTemplate || !hasConn {
		t.Fatalf("expected learner, template, and conn maps to share a key after AddLearner: state=%v template=%v conn=%v", hasState, hasTemplate, hasConn)
	}

	if err := r.RemoveLearner(descriptor.ID, descriptor.AuthToken); err != nil {
		t.Fatalf("RemoveLearner() error = %v", err)
	}

	unlock = r.Lock()
	_, hasState = r.State(descriptor.ID)
	_, hasTemplate = r.taskTemplates[descriptor.ID]
	_, hasConn = r.conns[descriptor.ID]
	unlock()

	if hasState || hasTemplate || hasConn {
		t.Errorf("expected all three maps to drop the key after RemoveLearner: state=%v template=%v conn=%v", hasState, hasTemplate, hasConn)
	}
}
