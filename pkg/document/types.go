// ABOUTME: Search document model projected from timeline nodes
// ABOUTME: One flat document per event or group, keyed by node path

package document

// Field names of a SearchDocument as seen by the full-text index.
const (
	FieldPath         = "path"
	FieldDateTime     = "dateTime"
	FieldSupplemental = "supplemental"
	FieldDescription  = "description"
	FieldTags         = "tags"
)

// DateTimeLayout renders a node's start anchor for display and search.
const DateTimeLayout = "Monday, January 2, 2006, 3:04 PM MST"

// SearchDocument is the flat, indexable form of one timeline node.
type SearchDocument struct {
	Path         string // serialized timeline.Path; unique per projection
	DateTime     string // start anchor rendered with DateTimeLayout
	Supplemental string // supplemental blocks, space-joined
	Description  string // event description or group title
	Tags         string // tags, space-joined

	ID    string // node ID, not indexed
	Group bool   // true for a group's own document
}

// Ref returns the document's unique reference.
func (d SearchDocument) Ref() string { return d.Path }

// FieldValue returns the text of a named field.
func (d SearchDocument) FieldValue(name string) string {
	switch name {
	case FieldPath:
		return d.Path
	case FieldDateTime:
		return d.DateTime
	case FieldSupplemental:
		return d.Supplemental
	case FieldDescription:
		return d.Description
	case FieldTags:
		return d.Tags
	}
	return ""
}

// Stats summarizes one projection.
type Stats struct {
	Documents int
	Anomalies int
}
