package workflow

// Bucket is one collapsible group of the triage view.
type Bucket[T any] struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	// Expanded is the default initial visibility: operationally active
	// statuses start open, resolved and rejected start collapsed.
	Expanded bool `json:"expanded"`
	Items    []T  `json:"items"`
}

// DefaultExpanded reports the initial visibility for a status bucket.
func DefaultExpanded(s Status) bool {
	switch s {
	case StatusReported, StatusUnderReview, StatusInProgress:
		return true
	default:
		return false
	}
}

// Group partitions items into one bucket per status value, in BucketOrder.
// Every item lands in exactly one bucket; an item whose status falls outside
// the vocabulary is folded into the rejected bucket rather than dropped, so
// the partition never omits anything the backend returned.
func Group[T any](items []T, status func(T) Status) []Bucket[T] {
	buckets := make([]Bucket[T], len(BucketOrder))
	index := make(map[Status]int, len(BucketOrder))
	for i, s := range BucketOrder {
		buckets[i] = Bucket[T]{Status: s, Label: StatusLabel(s), Expanded: DefaultExpanded(s), Items: []T{}}
		index[s] = i
	}
	for _, it := range items {
		i, ok := index[status(it)]
		if !ok {
			i = index[StatusRejected]
		}
		buckets[i].Items = append(buckets[i].Items, it)
	}
	return buckets
}
