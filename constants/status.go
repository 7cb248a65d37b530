package constants

// RunStatus is the canonical status for rows in extraction_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning            RunStatus = "RUNNING"             // in progress
	RunStatusDone               RunStatus = "DONE"                // all batches succeeded
	RunStatusPartial            RunStatus = "PARTIAL"             // at least one batch failed, result still produced
	RunStatusSegmentationFailed RunStatus = "SEGMENTATION_FAILED" // fatal: no recognizable section headings
	RunStatusFailed             RunStatus = "FAILED"              // terminal failure before any merge
)

// ProcessingMode records how a document was driven through the extractor.
type ProcessingMode string

const (
	ModeSinglePass ProcessingMode = "SINGLE_PASS"
	ModeBatch      ProcessingMode = "BATCH"
)

// BatchCallStatus is the outcome of one extraction call.
type BatchCallStatus string

const (
	BatchOK            BatchCallStatus = "OK"
	BatchProviderError BatchCallStatus = "PROVIDER_ERROR"
	BatchParseError    BatchCallStatus = "PARSE_ERROR"
)
