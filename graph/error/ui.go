package grapherror

import (
	"sort"

	"github.com/teranos/graphex/logger"
)

var defaultMessages = map[Category]string{
	CategoryInput:     "Invalid input.",
	CategoryTransport: "Request failed.",
	CategoryProtocol:  "Unexpected response from server.",
	CategoryInternal:  "An internal error occurred.",
}

// ToUIMessage converts the error to a message suitable for the status banner
func (e *GraphError) ToUIMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	if msg, ok := defaultMessages[e.Category]; ok {
		return msg
	}
	return "An error occurred"
}

// ToLogFields flattens the error into zap key/value pairs. Context keys are
// emitted in sorted order so log lines are stable.
func (e *GraphError) ToLogFields() []interface{} {
	fields := []interface{}{
		"error_category", string(e.Category),
		logger.FieldError, e.Error(),
	}
	if e.UserMessage != "" {
		fields = append(fields, "user_message", e.UserMessage)
	}
	if e.Subcategory != "" {
		fields = append(fields, "error_subcategory", e.Subcategory)
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, k, e.Context[k])
	}
	return fields
}

// IsCategory checks if the error matches a specific category
func (e *GraphError) IsCategory(cat Category) bool {
	return e.Category == cat
}

// IsSubcategory checks if the error matches a specific subcategory
func (e *GraphError) IsSubcategory(sub string) bool {
	return e.Subcategory == sub
}

// IsCategory reports whether err carries a GraphError of the given category.
func IsCategory(err error, cat Category) bool {
	ge, ok := From(err)
	return ok && ge.Category == cat
}
