package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRecommendationID is the recommendation batch ID
	FieldRecommendationID = "recommendation_id"

	// FieldUserID is the requesting user ID
	FieldUserID = "user_id"

	// FieldArtworkID is the artwork under processing
	FieldArtworkID = "artwork_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldModelVersion is the embedding model version tag
	FieldModelVersion = "model_version"
)

// Standard metric fields used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
