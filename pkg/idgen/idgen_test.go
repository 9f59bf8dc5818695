package idgen

import (
	"testing"

	"github.com/fedgo/controller/pkg/model"
)

func TestGenerateLearnerIDIsDeterministic(t *testing.T) {
	ep := model.Endpoint{Host: "learner-1.example.com", Port: 50051}

	first := GenerateLearnerID(ep)
	second := GenerateLearnerID(ep)

	if first != second {
		t.Errorf("GenerateLearnerID() not deterministic: %q != %q", first, second)
	}
}

func TestGenerateLearnerIDDistinguishesEndpoints(t *testing.T) {
	a := GenerateLearnerID(model.Endpoint{Host: "learner-1.example.com", Port: 50051})
	b := GenerateLearnerID(model.Endpoint{Host: "learner-2.example.com", Port: 50051})
	c := GenerateLearnerID(model.Endpoint{Host: "learner-1.example.com", Port: 50052})

	if a == b {
		t.Errorf("expected different hosts to yield different ids")
	}
	if a == c {
		t.Errorf("expected different ports to yield different ids")
	}
}

func TestTokenMinterMintAndVerify(t *testing.T) {
	minter, err := NewTokenMinter("")
	if err != nil {
		t.Fatalf("NewTokenMinter() error = %v", err)
	}

	token, err := minter.Mint("learner-1")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	if !minter.Verify("learner-1", token) {
		t.Errorf("expected token to verify for the learner it was minted for")
	}
	if minter.Verify("learner-2", token) {
		t.Errorf("expected token not to verify for a different learner")
	}
	if minter.Verify("learner-1", "garbage") {
		t.Errorf("expected a garbage token not to verify")
	}
	if minter.Verify("learner-1", "") {
		t.Errorf("expected an empty token not to verify")
	}
}

func TestTokenMinterConfiguredSecretIsStable(t *testing.T) {
	a, err := NewTokenMinter("shared-secret")
	if err != nil {
		t.Fatalf("NewTokenMinter() error = %v", err)
	}
	b, err := NewTokenMinter("shared-secret")
	if err != nil {
		t.Fatalf("NewTokenMinter() error = %v", err)
	}

	token, err := a.Mint("learner-1")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if !b.Verify("learner-1", token) {
		t.Errorf("expected a token minted by one minter to verify against another configured with the same secret")
	}
}
