package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonUnsupported       ReasonCode = "unsupported"
	ReasonCaptureError      ReasonCode = "capture_error"
	ReasonCaptureConnect    ReasonCode = "capture_connect"
	ReasonInvalidTransition ReasonCode = "invalid_transition"

	ReasonTranslateFailed    ReasonCode = "translate_failed"
	ReasonTranslateRateLimit ReasonCode = "translate_rate_limit"
	ReasonTranslateMalformed ReasonCode = "translate_malformed"

	ReasonSynthesisFailed  ReasonCode = "synthesis_failed"
	ReasonSynthesisConnect ReasonCode = "synthesis_connect"

	ReasonStorageCorrupt ReasonCode = "storage_corrupt"
	ReasonStorageRead    ReasonCode = "storage_read"
	ReasonStorageWrite   ReasonCode = "storage_write"
)
