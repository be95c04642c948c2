package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindtv/internal/classify"
	"mindtv/internal/models"
)

func seedSession(t *testing.T, store *memStore, id, state string, samples ...models.Sample) {
	t.Helper()
	ctx := context.Background()
	repos := store.repos()
	if err := repos.SessionRepo.Create(ctx, models.Session{ID: id, Port: "MOCK", State: state, StartedAt: time.Now().UTC(), Content: "Jornal"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repos.SampleRepo.SaveBatch(ctx, id, samples); err != nil {
		t.Fatalf("seed samples: %v", err)
	}
}

type classifiedCounter struct {
	ok, failed int
}

func (c *classifiedCounter) LineRead() {}
func (c *classifiedCounter) SampleAccepted() {}
func (c *classifiedCounter) LineDropped() {}
func (c *classifiedCounter) RunStarted() {}
func (c *classifiedCounter) RunFinished(string, float64) {}
func (c *classifiedCounter) Classified(err error, _ float64) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func TestClassificationService_Classify(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	repos := store.repos()
	seedSession(t, store, "done", models.SessionCompleted,
		models.Sample{BPM: 60}, models.Sample{BPM: 100}, models.Sample{BPM: 62})

	rec := &classifiedCounter{}
	calm := classify.ClassifierFunc(func(_, bpm, _, _ float64) (string, error) {
		if bpm > 90 {
			return "Reality Show", nil
		}
		return "Jornal", nil
	})
	svc := NewClassificationService(repos.SessionRepo, repos.SampleRepo, repos.EventRepo, calm, rec, nil)

	res, err := svc.Classify(context.Background(), "done")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.Label != "Jornal" || res.Count != 2 || res.Total != 3 {
		t.Fatalf("result = %+v", res)
	}
	if got := store.session("done").Label; got != "Jornal" {
		t.Fatalf("stored label = %q", got)
	}
	if types := store.eventTypes("done"); len(types) != 1 || types[0] != models.EventClassified {
		t.Fatalf("events = %v", types)
	}
	if rec.ok != 1 {
		t.Fatalf("recorder ok = %d", rec.ok)
	}
}

func TestClassificationService_Errors(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	repos := store.repos()
	seedSession(t, store, "running", models.SessionRunning)
	seedSession(t, store, "empty", models.SessionCompleted)
	seedSession(t, store, "bad", models.SessionFailed, models.Sample{IR: 1})

	broken := classify.ClassifierFunc(func(_, _, _, _ float64) (string, error) {
		return "", errors.New("model mismatch")
	})
	rec := &classifiedCounter{}
	svc := NewClassificationService(repos.SessionRepo, repos.SampleRepo, repos.EventRepo, broken, rec, nil)
	ctx := context.Background()

	tests := []struct {
		id   string
		want error
	}{
		{"missing", ErrSessionNotFound},
		{"running", ErrSessionNotFinished},
		{"empty", ErrNoSamples},
		{"bad", classify.ErrClassifier},
	}
	for _, tt := range tests {
		if _, err := svc.Classify(ctx, tt.id); !errors.Is(err, tt.want) {
			t.Fatalf("Classify(%s) err = %v; want %v", tt.id, err, tt.want)
		}
	}
	if store.session("bad").Label != "" {
		t.Fatalf("label stored after classifier failure")
	}
	if rec.failed != 2 {
		t.Fatalf("recorder failed = %d; want 2", rec.failed)
	}

	noModel := NewClassificationService(repos.SessionRepo, repos.SampleRepo, repos.EventRepo, nil, nil, nil)
	if noModel.Ready() {
		t.Fatalf("Ready without a model")
	}
	if _, err := noModel.Classify(ctx, "bad"); !errors.Is(err, ErrNoModel) {
		t.Fatalf("err = %v; want ErrNoModel", err)
	}
}
