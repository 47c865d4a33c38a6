package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("get problem: %w", NotFound("problem %d not found", 7))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("errors.Is(NotFound): want=true got=false")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatalf("errors.Is(Conflict): want=false got=true")
	}
	if got := err.Error(); got != "get problem: problem 7 not found" {
		t.Fatalf("message: want=%q got=%q", "get problem: problem 7 not found", got)
	}
}

func TestAsFallsBackToInternal(t *testing.T) {
	ae := As(errors.New("boom"))
	if ae.Status != http.StatusInternalServerError || ae.Code != CodeInternal {
		t.Fatalf("fallback: want=%d/%s got=%d/%s", http.StatusInternalServerError, CodeInternal, ae.Status, ae.Code)
	}

	ae = As(fmt.Errorf("wrap: %w", UpstreamUnavailable("github down")))
	if ae.Status != http.StatusBadGateway || ae.Code != CodeUpstreamUnavailable {
		t.Fatalf("classified: want=%d/%s got=%d/%s", http.StatusBadGateway, CodeUpstreamUnavailable, ae.Status, ae.Code)
	}
}
