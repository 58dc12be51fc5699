package query

// Pseudo-fields every entity exposes next to its payload fields. They read
// the version's id and interval bounds.
const (
	FieldID             = "id"
	FieldBusinessFrom   = "businessFrom"
	FieldBusinessThru   = "businessThru"
	FieldProcessingFrom = "processingFrom"
	FieldProcessingThru = "processingThru"

	// FieldBusinessDate and FieldProcessingDate alias the From bounds.
	FieldBusinessDate   = "businessDate"
	FieldProcessingDate = "processingDate"
)

// CanonicalField resolves the date aliases to their From field. Other names
// are returned unchanged.
func CanonicalField(name string) string {
	switch name {
	case FieldBusinessDate:
		return FieldBusinessFrom
	case FieldProcessingDate:
		return FieldProcessingFrom
	}
	return name
}

// IsPseudoField reports whether name reads version metadata rather than
// the payload.
func IsPseudoField(name string) bool {
	switch CanonicalField(name) {
	case FieldID, FieldBusinessFrom, FieldBusinessThru, FieldProcessingFrom, FieldProcessingThru:
		return true
	}
	return false
}
