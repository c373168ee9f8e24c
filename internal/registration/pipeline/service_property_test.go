package pipeline_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"signup/internal/registration/models"
	"signup/internal/registration/pipeline"
	"signup/internal/registration/store"
	dErrors "signup/pkg/domain-errors"
)

type countingMirror struct {
	mu      sync.Mutex
	primary map[models.RegistrationID]int
}

func (m *countingMirror) Primary(_ context.Context, rec models.RegistrationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primary[rec.ID]++
}

func (m *countingMirror) Supplemental(context.Context, models.SupplementalInfoRecord) {}

// Each distinct email yields exactly one record and one mirror dispatch; every
// repeat is a conflict that creates nothing.
func TestPipeline_DuplicateEmailsNeverOverwrite(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		regs := store.NewInMemory()
		mir := &countingMirror{primary: map[models.RegistrationID]int{}}
		svc := pipeline.New(pipeline.NewInMemorySessionStore(time.Hour), regs,
			pipeline.WithMirror(mir),
			pipeline.WithLogger(quietLogger()),
		)
		ctx := context.Background()

		picks := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 20).Draw(t, "emails")
		distinct := map[int]bool{}
		for _, p := range picks {
			sess, err := svc.Start(ctx)
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			input := models.RegistrationInput{
				Name:       "Registrant",
				Email:      fmt.Sprintf("user%d@example.com", p),
				Phone:      "09123456789",
				Role:       "faculty",
				University: "U",
			}
			got, err := svc.SubmitPrimary(ctx, sess.ID, input)
			if distinct[p] {
				if !dErrors.Is(err, dErrors.CodeConflict) {
					t.Fatalf("repeat of %s: want conflict, got %v", input.Email, err)
				}
				if got.RegistrationID != nil {
					t.Fatalf("conflict produced a registration id")
				}
				continue
			}
			if err != nil {
				t.Fatalf("first submit of %s: %v", input.Email, err)
			}
			distinct[p] = true
		}

		if regs.Count() != len(distinct) {
			t.Fatalf("records = %d, distinct emails = %d", regs.Count(), len(distinct))
		}
		if len(mir.primary) != len(distinct) {
			t.Fatalf("mirrored ids = %d, distinct emails = %d", len(mir.primary), len(distinct))
		}
		for id, n := range mir.primary {
			if n != 1 {
				t.Fatalf("registration %s mirrored %d times", id, n)
			}
		}
	})
}

// Declining leaves the committed primary record exactly as inserted.
func TestPipeline_DeclineLeavesPrimaryUnchanged(t *testing.T) {
	regs := store.NewInMemory()
	svc := pipeline.New(pipeline.NewInMemorySessionStore(time.Hour), regs, pipeline.WithLogger(quietLogger()))
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sess, err = svc.SubmitPrimary(ctx, sess.ID, validInput())
	if err != nil {
		t.Fatal(err)
	}
	before, err := regs.FindRegistration(ctx, *sess.RegistrationID)
	if err != nil {
		t.Fatal(err)
	}

	sess, err = svc.Decline(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != pipeline.StateDone {
		t.Fatalf("state = %s, want done", sess.State)
	}
	after, err := regs.FindRegistration(ctx, *sess.RegistrationID)
	if err != nil {
		t.Fatal(err)
	}
	if *before != *after {
		t.Fatalf("primary record changed: %+v -> %+v", before, after)
	}
	if _, err := regs.FindSupplemental(ctx, *sess.RegistrationID); err == nil {
		t.Fatal("decline must not create supplemental info")
	}
}

// A failed supplemental write keeps the primary record queryable and unchanged.
func TestPipeline_SupplementalFailureKeepsPrimary(t *testing.T) {
	regs := store.NewInMemory()
	failing := &failingUpsert{InMemoryStore: regs}
	svc := pipeline.New(pipeline.NewInMemorySessionStore(time.Hour), failing, pipeline.WithLogger(quietLogger()))
	ctx := context.Background()

	sess, _ := svc.Start(ctx)
	sess, err := svc.SubmitPrimary(ctx, sess.ID, validInput())
	if err != nil {
		t.Fatal(err)
	}
	sess, err = svc.SubmitSupplemental(ctx, sess.ID, validSupplemental())
	if err == nil || sess.FailedPhase != pipeline.PhaseSupplemental {
		t.Fatalf("want supplemental error, got state %s err %v", sess.Machine, err)
	}
	rec, err := regs.FindRegistration(ctx, *sess.RegistrationID)
	if err != nil {
		t.Fatalf("primary not queryable: %v", err)
	}
	if rec.Email != "a@x.com" {
		t.Fatalf("primary changed: %+v", rec)
	}
}

type failingUpsert struct {
	*store.InMemoryStore
}

func (f *failingUpsert) UpsertSupplemental(context.Context, models.RegistrationID, models.SupplementalInfoRecord) error {
	return fmt.Errorf("transport failure")
}
