package store

import (
	"context"
	"testing"
	"time"
)

func TestEventRepository_RecordAndList(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	kinds := []string{"swipe_left", "thumbs_up", "swipe_left", "fist"}
	for i, k := range kinds {
		e := &Event{Kind: k, Source: "motion", Timestamp: base.Add(time.Duration(i) * time.Second)}
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Record() should assign an ID")
		}
	}

	got, err := repo.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListRecent(3) returned %d events", len(got))
	}
	if got[0].Kind != "fist" || got[2].Kind != "thumbs_up" {
		t.Errorf("ListRecent order = %s, %s, %s", got[0].Kind, got[1].Kind, got[2].Kind)
	}
	if !got[0].Timestamp.Equal(base.Add(3 * time.Second)) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, base.Add(3*time.Second))
	}
}

func TestEventRepository_CountByKind(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	ctx := context.Background()

	for _, k := range []string{"peace", "fist", "peace", "peace", "fist", "open_palm"} {
		if err := repo.Record(ctx, &Event{Kind: k, Source: "landmarks", Timestamp: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := repo.CountByKind(ctx)
	if err != nil {
		t.Fatalf("CountByKind() error = %v", err)
	}
	want := []KindCount{{"peace", 3}, {"fist", 2}, {"open_palm", 1}}
	if len(counts) != len(want) {
		t.Fatalf("CountByKind() = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("counts[%d] = %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestEventRepository_Prune(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{48 * time.Hour, 30 * time.Hour, time.Hour} {
		if err := repo.Record(ctx, &Event{Kind: "fist", Source: "landmarks", Timestamp: now.Add(-age)}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() removed %d, want 2", n)
	}

	left, _ := repo.ListRecent(ctx, 10)
	if len(left) != 1 {
		t.Errorf("%d events left, want 1", len(left))
	}
}
