package workflow

// Display vocabularies shared by every view. Marker color is a pure function
// of category; status colors name the badge palette.

var statusLabels = map[Status]string{
	StatusReported:    "Reported",
	StatusUnderReview: "Under Review",
	StatusInProgress:  "In Progress",
	StatusResolved:    "Resolved",
	StatusRejected:    "Rejected",
}

var categoryLabels = map[Category]string{
	CategoryRoadDamage:     "Road Damage",
	CategoryWaterSupply:    "Water Supply",
	CategorySanitation:     "Sanitation",
	CategoryElectricity:    "Electricity",
	CategoryFlooding:       "Flooding",
	CategoryIllegalDumping: "Illegal Dumping",
	CategoryStreetlight:    "Streetlight",
	CategoryOther:          "Other",
}

var categoryColors = map[Category]string{
	CategoryRoadDamage:     "#e74c3c",
	CategoryWaterSupply:    "#3498db",
	CategorySanitation:     "#8e44ad",
	CategoryElectricity:    "#f39c12",
	CategoryFlooding:       "#1a8fe8",
	CategoryIllegalDumping: "#27ae60",
	CategoryStreetlight:    "#f1c40f",
	CategoryOther:          "#95a5a6",
}

var statusColors = map[Status]string{
	StatusReported:    "blue",
	StatusUnderReview: "yellow",
	StatusInProgress:  "orange",
	StatusResolved:    "green",
	StatusRejected:    "red",
}

// StatusLabel returns the human label for s, or the raw value if unknown.
func StatusLabel(s Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// CategoryLabel returns the human label for c, or the raw value if unknown.
func CategoryLabel(c Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// MarkerColor returns the map marker color for a category.
func MarkerColor(c Category) string {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return categoryColors[CategoryOther]
}

// StatusColor returns the badge color name for a status.
func StatusColor(s Status) string {
	if col, ok := statusColors[s]; ok {
		return col
	}
	return "gray"
}
