package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType tags a line with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCaptureFile is the inbox file name of a capture.
	FieldCaptureFile = "capture_file"
	// FieldContentHash is the SHA-256 fingerprint of a payload.
	FieldContentHash = "sha256"
	// FieldPayloadBytes is the encoded size of a payload.
	FieldPayloadBytes = "payload_bytes"
	// FieldBackend names the clipboard backend in use.
	FieldBackend = "backend"
)
