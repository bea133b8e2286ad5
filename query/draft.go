package query

import "strings"

// Draft is the not-yet-applied query input.
type Draft struct {
	SearchText string `json:"searchText"`
	Attribute  string `json:"attribute"`
	Operator   string `json:"operator"`
	Value      string `json:"value"`
}

// NewDraft returns an empty draft with the default operator.
func NewDraft() Draft {
	return Draft{Operator: DefaultOperator}
}

// Trimmed returns d with surrounding whitespace removed from every field.
func (d Draft) Trimmed() Draft {
	return Draft{
		SearchText: strings.TrimSpace(d.SearchText),
		Attribute:  strings.TrimSpace(d.Attribute),
		Operator:   strings.TrimSpace(d.Operator),
		Value:      strings.TrimSpace(d.Value),
	}
}

// HasSearch reports whether there is search text.
func (d Draft) HasSearch() bool {
	return strings.TrimSpace(d.SearchText) != ""
}

// HasFilter reports whether attribute, operator and value are all set.
func (d Draft) HasFilter() bool {
	t := d.Trimmed()
	return t.Attribute != "" && t.Operator != "" && t.Value != ""
}

// SearchPreview is the "Current search: ..." line.
func (d Draft) SearchPreview() string {
	if s := strings.TrimSpace(d.SearchText); s != "" {
		return "Current search: " + s
	}
	return "Current search: none"
}
