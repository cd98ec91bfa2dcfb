package models

// Property types the sync cares about.
const (
	PropertyTitle    = "title"
	PropertyRichText = "rich_text"
	PropertyDate     = "date"
)

// Property is a flattened record property: its name, its semantic type and
// its plain text, if it has any.
type Property struct {
	Name string
	Type string
	Text string
}

// Record is a database row.
type Record struct {
	ID         string
	URL        string
	Properties map[string]Property
	Range      *Range // nil when the record has no date and is not sync-eligible
}
