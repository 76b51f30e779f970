// Package workflow defines the report status and category vocabularies and
// the ordering rules consumed by the directory and triage views.
//
// The workflow does not enforce transition legality; the backend is the
// authority, and a privileged actor may move a report from any status to any
// other. What lives here is the total order used for progress rendering and
// the bucket partition used by the triage view.
package workflow

// Status is one of the closed set of report workflow states.
type Status string

const (
	StatusReported    Status = "reported"
	StatusUnderReview Status = "under_review"
	StatusInProgress  Status = "in_progress"
	StatusResolved    Status = "resolved"
	// StatusRejected is terminal and out-of-band: it is excluded from the
	// ordered progress sequence but participates in grouping.
	StatusRejected Status = "rejected"
)

// Category is one of the closed set of issue categories.
type Category string

const (
	CategoryRoadDamage     Category = "road_damage"
	CategoryWaterSupply    Category = "water_supply"
	CategorySanitation     Category = "sanitation"
	CategoryElectricity    Category = "electricity"
	CategoryFlooding       Category = "flooding"
	CategoryIllegalDumping Category = "illegal_dumping"
	CategoryStreetlight    Category = "streetlight"
	CategoryOther          Category = "other"
)

// Sequence is the canonical progress order. Rejected is deliberately absent.
var Sequence = []Status{StatusReported, StatusUnderReview, StatusInProgress, StatusResolved}

// BucketOrder is the fixed display order for triage buckets.
var BucketOrder = []Status{StatusReported, StatusUnderReview, StatusInProgress, StatusResolved, StatusRejected}

// Categories lists every valid category value.
var Categories = []Category{
	CategoryRoadDamage, CategoryWaterSupply, CategorySanitation, CategoryElectricity,
	CategoryFlooding, CategoryIllegalDumping, CategoryStreetlight, CategoryOther,
}

// ValidStatus reports whether s is in the status vocabulary.
func ValidStatus(s Status) bool {
	for _, v := range BucketOrder {
		if v == s {
			return true
		}
	}
	return false
}

// ValidCategory reports whether c is in the category vocabulary.
func ValidCategory(c Category) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// ProgressIndex returns the zero-based position of s in the ordered sequence.
// ok is false for rejected (and for any value outside the vocabulary), which
// the progress tracker treats as "not applicable".
func ProgressIndex(s Status) (idx int, ok bool) {
	for i, v := range Sequence {
		if v == s {
			return i, true
		}
	}
	return 0, false
}

// FillProportion is the fraction of the connecting line to fill for status s:
// index / (len(Sequence) - 1). Rejected yields 0 with ok false.
func FillProportion(s Status) (fill float64, ok bool) {
	idx, ok := ProgressIndex(s)
	if !ok {
		return 0, false
	}
	return float64(idx) / float64(len(Sequence)-1), true
}

// Step is one marker of the progress tracker.
type Step struct {
	Status    Status `json:"status"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
}

// ProgressSteps renders one marker per ordered status, marking every index
// at or before the current one as completed. For rejected the tracker is not
// applicable and nil is returned.
func ProgressSteps(current Status) []Step {
	idx, ok := ProgressIndex(current)
	if !ok {
		return nil
	}
	steps := make([]Step, len(Sequence))
	for i, s := range Sequence {
		steps[i] = Step{Status: s, Label: StatusLabel(s), Completed: i <= idx}
	}
	return steps
}
