package exam

import (
	"context"
	"math/rand"
	"sort"
)

// PoolReader is the read-only question catalog surface the selector needs.
type PoolReader interface {
	QuestionIDsBySubjects(ctx context.Context, subjectIDs []string) ([]string, error)
}

// HistoryReader exposes a learner's past attempt outcomes.
type HistoryReader interface {
	UnattemptedQuestionIDs(ctx context.Context, learnerID string, subjectIDs []string) ([]string, error)
	IncorrectCounts(ctx context.Context, learnerID string, subjectIDs []string) (map[string]int, error)
}

// Selector picks the question ids that populate a new exam. It has no side
// effects; everything is derived from the two readers.
type Selector struct {
	Pool    PoolReader
	History HistoryReader
	Rand    *rand.Rand // tests inject a seeded source
}

// Select returns up to count distinct question ids drawn from the given
// subjects. A short or empty result is a valid outcome, never an error:
// the caller decides whether too few questions blocks session creation.
func (s *Selector) Select(ctx context.Context, learnerID string, subjectIDs []string, count int, mode Mode) ([]string, error) {
	pool, err := s.Pool.QuestionIDsBySubjects(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	if mode == ModeProgress {
		return s.selectProgress(ctx, learnerID, subjectIDs, pool, count)
	}
	return s.sample(pool, count), nil
}

// selectProgress builds three priority tiers: never-attempted questions
// first, then previously-missed questions ordered most-missed first, then a
// random backfill over whatever remains so the requested count is reached
// whenever the pool allows it.
func (s *Selector) selectProgress(ctx context.Context, learnerID string, subjectIDs, pool []string, count int) ([]string, error) {
	unattempted, err := s.History.UnattemptedQuestionIDs(ctx, learnerID, subjectIDs)
	if err != nil {
		return nil, err
	}
	wrongCounts, err := s.History.IncorrectCounts(ctx, learnerID, subjectIDs)
	if err != nil {
		return nil, err
	}

	picked := newOrderedSet(count)
	for _, id := range unattempted {
		picked.Add(id)
	}

	missed := make([]string, 0, len(wrongCounts))
	for id := range wrongCounts {
		missed = append(missed, id)
	}
	sort.Slice(missed, func(i, j int) bool {
		if wrongCounts[missed[i]] != wrongCounts[missed[j]] {
			return wrongCounts[missed[i]] > wrongCounts[missed[j]]
		}
		return missed[i] < missed[j]
	})
	for _, id := range missed {
		picked.Add(id)
	}

	if picked.Len() < count {
		rest := s.shuffled(pool)
		for _, id := range rest {
			if picked.Len() >= count {
				break
			}
			picked.Add(id)
		}
	}

	ids := picked.Values()
	if len(ids) > count {
		ids = ids[:count]
	}
	return ids, nil
}

// sample draws up to count ids uniformly without replacement.
func (s *Selector) sample(pool []string, count int) []string {
	out := s.shuffled(pool)
	if count < len(out) {
		out = out[:count]
	}
	return out
}

func (s *Selector) shuffled(ids []string) []string {
	out := append([]string(nil), ids...)
	s.Rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// orderedSet keeps insertion order with O(1) membership, so tier
// combination stays linear and stable.
type orderedSet struct {
	seen map[string]struct{}
	ids  []string
}

func newOrderedSet(hint int) *orderedSet {
	if hint < 0 {
		hint = 0
	}
	return &orderedSet{seen: make(map[string]struct{}, hint), ids: make([]string, 0, hint)}
}

func (o *orderedSet) Add(id string) {
	if _, ok := o.seen[id]; ok {
		return
	}
	o.seen[id] = struct{}{}
	o.ids = append(o.ids, id)
}

func (o *orderedSet) Len() int         { return len(o.ids) }
func (o *orderedSet) Values() []string { return o.ids }
