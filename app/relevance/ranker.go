package relevance

import (
	"cmp"
	"slices"
)

type Ranker struct{}

func NewRanker() *Ranker {
	return &Ranker{}
}

// Run sorts in place: relevance, then rank score, then recency, all
// descending. Ties keep their input order.
func (r *Ranker) Run(items []Item) []Item {
	slices.SortStableFunc(items, compareItems)
	return items
}

func compareItems(a, b Item) int {
	if c := cmp.Compare(b.RelevanceScore, a.RelevanceScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.RankScore, a.RankScore); c != 0 {
		return c
	}
	return b.PublishedAt.Compare(a.PublishedAt)
}
