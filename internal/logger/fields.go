package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldRequestID is the HTTP request ID (UUID).
	FieldRequestID = "request_id"

	// FieldRunID identifies one batch pipeline run.
	FieldRunID = "run_id"

	// FieldJobID is the remote extraction job ID.
	FieldJobID = "job_id"

	// FieldFile is the file path currently being processed.
	FieldFile = "file"

	// FieldComponent is the component/module name.
	FieldComponent = "component"
)

// Standard metric fields used for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldStatus is the operation status.
	FieldStatus = "status"

	// FieldSize is the data size in bytes.
	FieldSize = "size"
)
