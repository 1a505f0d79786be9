package exam

import (
	"context"
	"math/rand"
	"testing"
)

type fakePool struct {
	bySubject map[string][]string
}

func (f *fakePool) QuestionIDsBySubjects(_ context.Context, subjectIDs []string) ([]string, error) {
	var ids []string
	for _, s := range subjectIDs {
		ids = append(ids, f.bySubject[s]...)
	}
	return ids, nil
}

type fakeHistory struct {
	unattempted []string
	wrongCounts map[string]int
}

func (f *fakeHistory) UnattemptedQuestionIDs(_ context.Context, _ string, _ []string) ([]string, error) {
	return f.unattempted, nil
}

func (f *fakeHistory) IncorrectCounts(_ context.Context, _ string, _ []string) (map[string]int, error) {
	return f.wrongCounts, nil
}

func newTestSelector(pool *fakePool, hist *fakeHistory) *Selector {
	return &Selector{Pool: pool, History: hist, Rand: rand.New(rand.NewSource(1))}
}

func TestSelectRandomBoundAndUniqueness(t *testing.T) {
	pool := &fakePool{bySubject: map[string][]string{
		"s1": {"q1", "q2", "q3"},
		"s2": {"q4", "q5"},
	}}
	sel := newTestSelector(pool, &fakeHistory{})

	ids, err := sel.Select(context.Background(), "u1", []string{"s1", "s2"}, 3, ModeRandom)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("want 3 ids, got %d", len(ids))
	}
	valid := map[string]bool{"q1": true, "q2": true, "q3": true, "q4": true, "q5": true}
	seen := map[string]bool{}
	for _, id := range ids {
		if !valid[id] {
			t.Errorf("id %q not in requested subjects", id)
		}
		if seen[id] {
			t.Errorf("id %q returned twice", id)
		}
		seen[id] = true
	}
}

func TestSelectRandomShortfall(t *testing.T) {
	pool := &fakePool{bySubject: map[string][]string{"s1": {"q1", "q2", "q3"}}}
	sel := newTestSelector(pool, &fakeHistory{})

	ids, err := sel.Select(context.Background(), "u1", []string{"s1"}, 10, ModeRandom)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("want all 3 available ids, got %d", len(ids))
	}
}

func TestSelectEmptyPool(t *testing.T) {
	sel := newTestSelector(&fakePool{bySubject: map[string][]string{}}, &fakeHistory{})

	for _, mode := range []Mode{ModeRandom, ModeProgress} {
		ids, err := sel.Select(context.Background(), "u1", []string{"s1"}, 5, mode)
		if err != nil {
			t.Fatalf("select %s: %v", mode, err)
		}
		if len(ids) != 0 {
			t.Fatalf("select %s: want empty result, got %v", mode, ids)
		}
	}
}

func TestProgressUnattemptedOnly(t *testing.T) {
	pool := &fakePool{bySubject: map[string][]string{"s1": {"q1", "q2", "q3"}}}
	hist := &fakeHistory{unattempted: []string{"q1", "q2", "q3"}}
	sel := newTestSelector(pool, hist)

	ids, err := sel.Select(context.Background(), "u1", []string{"s1"}, 3, ModeProgress)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{"q1", "q2", "q3"}
	if len(ids) != len(want) {
		t.Fatalf("want %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("want %v, got %v", want, ids)
		}
	}
}

func TestProgressUnattemptedBeatsIncorrect(t *testing.T) {
	pool := &fakePool{bySubject: map[string][]string{"s1": {"qU", "qW"}}}
	hist := &fakeHistory{
		unattempted: []string{"qU"},
		wrongCounts: map[string]int{"qW": 3},
	}
	sel := newTestSelector(pool, hist)

	ids, err := sel.Select(context.Background(), "u1", []string{"s1"}, 1, ModeProgress)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 1 || ids[0] != "qU" {
		t.Fatalf("want [qU], got %v", ids)
	}
}

func TestProgressIncorrectOrderedByWrongCount(t *testing.T) {
	pool := &fakePool{bySubject: map[string][]string{"s1": {"q1", "q2", "q3"}}}
	hist := &fakeHistory{
		wrongCounts: map[string]int{"q1": 1, "q2": 5, "q3": 2},
	}
	sel := newTestSelector(pool, hist)

	ids, err := sel.Select(context.Background(), "u1", []string{"s1"}, 3, ModeProgress)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{"q2", "q3", "q1"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("want %v, got %v", want, ids)
		}
	}
}

func TestProgressBackfillReachesCount(t *testing.T) {
	// q1 unattempted, q2 previously wrong, q3/q4 previously correct: the
	// backfill tier must reintroduce them to satisfy the count.
	pool := &fakePool{bySubject: map[string][]string{"s1": {"q1", "q2", "q3", "q4"}}}
	hist := &fakeHistory{
		unattempted: []string{"q1"},
		wrongCounts: map[string]int{"q2": 2},
	}
	sel := newTestSelector(pool, hist)

	ids, err := sel.Select(context.Background(), "u1", []string{"s1"}, 4, ModeProgress)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("want 4 ids, got %v", ids)
	}
	if ids[0] != "q1" || ids[1] != "q2" {
		t.Fatalf("tier order violated: %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %q in %v", id, ids)
		}
		seen[id] = true
	}
}

func TestProgressTruncatesToCount(t *testing.T) {
	pool := &fakePool{bySubject: map[string][]string{"s1": {"q1", "q2", "q3", "q4", "q5"}}}
	hist := &fakeHistory{unattempted: []string{"q1", "q2", "q3", "q4", "q5"}}
	sel := newTestSelector(pool, hist)

	ids, err := sel.Select(context.Background(), "u1", []string{"s1"}, 2, ModeProgress)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("want 2 ids, got %v", ids)
	}
}
