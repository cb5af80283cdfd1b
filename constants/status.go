package constants

// DocStatus is the canonical per-document state during a batch run.
type DocStatus string

// Stable values (these exact strings appear in logs and run summaries).
const (
	DocStatusPending      DocStatus = "PENDING"
	DocStatusExtracting   DocStatus = "EXTRACTING"
	DocStatusRequesting   DocStatus = "REQUESTING"
	DocStatusRetrying     DocStatus = "RETRYING"
	DocStatusParsing      DocStatus = "PARSING"
	DocStatusDone         DocStatus = "DONE"   // terminal success
	DocStatusFailed       DocStatus = "FAILED" // terminal per-document failure
	DocStatusNotAttempted DocStatus = "NOT_ATTEMPTED"
)
