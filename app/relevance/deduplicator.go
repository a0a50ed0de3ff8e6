package relevance

// Deduplicator keeps the first item seen for every ID.
type Deduplicator struct{}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

func (d *Deduplicator) Run(items []Item) ([]Item, int) {
	out := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	duplicates := 0

	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			duplicates++
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}

	return out, duplicates
}
