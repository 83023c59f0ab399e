package domain

// Status is the terminal classification of one checked link. Every page is
// forced into exactly one of these values; there is no "unknown" state.
type Status string

const (
	StatusWorking            Status = "WORKING"
	StatusFailed             Status = "FAILED"
	StatusRateLimitSuspected Status = "RATE_LIMIT_SUSPECTED"
	StatusError              Status = "ERROR"
	StatusCancelled          Status = "CANCELLED"
)

// Confidence grades a WORKING classification by how many independent positive
// signals co-occurred. It is meaningless for any other status.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Outcome is the classifier's verdict for one navigation result.
type Outcome struct {
	Status     Status
	Confidence Confidence
	Detail     string
}

// LinkTask is one candidate line from the input file, immutable once parsed.
type LinkTask struct {
	URL     string
	LineNum int
	RawLine string
}

// NavigationResult is the transient page snapshot a navigation produced.
// It is consumed by the classifier and never persisted.
type NavigationResult struct {
	FinalURL   string
	Title      string
	HTMLSource string
}

// InteractiveElement is a clickable control found on the current page.
type InteractiveElement struct {
	Text string
	Role string
}

// LinkResult is the audited record for one processed task. The JSON field
// names are part of the detailed-report format and must not change.
type LinkResult struct {
	Link            string            `json:"link"`
	Status          Status            `json:"status"`
	ResultDetails   string            `json:"result_details"`
	FinalURL        string            `json:"final_url"`
	OriginalURL     string            `json:"original_url_from_file"`
	LineNum         int               `json:"line_num"`
	Confidence      Confidence        `json:"confidence"`
	ContentAnalysis map[string]string `json:"content_analysis"`
	Error           string            `json:"error"`
}

// RunStats are the monotonically incrementing counters for one run.
type RunStats struct {
	TotalProcessed     int `json:"total_processed"`
	WorkingFound       int `json:"working_found"`
	FailedOrInvalid    int `json:"failed_or_invalid"`
	RateLimitSuspected int `json:"rate_limit_suspected"`
}

// RunState is the orchestrator lifecycle state.
type RunState string

const (
	RunIdle         RunState = "IDLE"
	RunInitializing RunState = "INITIALIZING"
	RunRunning      RunState = "RUNNING"
	RunStopping     RunState = "STOPPING"
	RunStopped      RunState = "STOPPED"
	RunCompleted    RunState = "COMPLETED"
)
