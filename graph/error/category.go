package grapherror

// Category represents the main failure class of a workspace operation
type Category string

const (
	// CategoryInput indicates the user supplied something unusable
	CategoryInput Category = "input"

	// CategoryTransport indicates the backend could not be reached or replied with a failure status
	CategoryTransport Category = "transport"

	// CategoryProtocol indicates the backend replied with an unparseable or mis-shaped body
	CategoryProtocol Category = "protocol"

	// CategoryInternal indicates an invariant broke inside the client
	CategoryInternal Category = "internal"
)

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Input Subcategories
const (
	// SubcategoryInputNoUpload indicates load was requested without a selected file
	SubcategoryInputNoUpload = "no_upload"

	// SubcategoryInputNoGraph indicates a graph operation ran before any graph was loaded
	SubcategoryInputNoGraph = "no_graph"

	// SubcategoryInputMissingFields indicates a filter draft lacks attribute, operator or value
	SubcategoryInputMissingFields = "missing_fields"

	// SubcategoryInputInvalidGraph indicates a nodes/edges container failed validation
	SubcategoryInputInvalidGraph = "invalid_graph"
)

// Transport Subcategories
const (
	// SubcategoryTransportNetwork indicates the request never produced a response
	SubcategoryTransportNetwork = "network"

	// SubcategoryTransportStatus indicates a non-2xx response
	SubcategoryTransportStatus = "status"

	// SubcategoryTransportRejected indicates a 2xx response with ok=false
	SubcategoryTransportRejected = "rejected"
)

// Protocol Subcategories
const (
	// SubcategoryProtocolDecode indicates the body was not valid JSON
	SubcategoryProtocolDecode = "decode"

	// SubcategoryProtocolShape indicates required fields were missing or mistyped
	SubcategoryProtocolShape = "shape"

	// SubcategoryProtocolMissingGraphID indicates a load reply without a graph id
	SubcategoryProtocolMissingGraphID = "missing_graph_id"
)

// Internal Subcategories
const (
	// SubcategoryInternalState indicates invalid internal state
	SubcategoryInternalState = "invalid_state"
)
