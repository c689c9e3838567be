package pipeline

import "sync"

// Pipeline stages, in execution order.
const (
	StageReading    = "reading"
	StageParsing    = "parsing"
	StageAnalyzing  = "analyzing"
	StageFinalizing = "finalizing"
	StageComplete   = "complete"
	StageError      = "error"
)

// Progress bounds per stage. Values within a run only move forward,
// except the jump to error which resets to 0.
const (
	progressReadingStart   = 5
	progressParsingStart   = 15
	progressParsingDone    = 25
	progressAnalyzingStart = 30
	progressAnalyzingEnd   = 80
	progressWritingStart   = 85
	progressWritingEnd     = 95
	progressComplete       = 100
)

// Progress is the status record polled by the client. It is replaced
// wholesale on every update, never merged.
type Progress struct {
	Stage     string `json:"stage"`
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
}

// Tracker maps upload ids to progress records. It is the only state shared
// between the HTTP handlers and the background runs, so every write is a
// whole-record replacement and reads never see a partial update.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]Progress
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]Progress)}
}

// Set stores the record for uploadID. Once a record reaches a terminal
// stage (complete or error), later writes are ignored.
func (t *Tracker) Set(uploadID string, p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.records[uploadID]; ok {
		if current.Stage == StageComplete || current.Stage == StageError {
			return
		}
	}
	t.records[uploadID] = p
}

// Get returns the record for uploadID, if any.
func (t *Tracker) Get(uploadID string) (Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.records[uploadID]
	return p, ok
}

// Delete removes the record for uploadID. Records are not deleted by the
// pipeline itself; this exists for operational sweeps.
func (t *Tracker) Delete(uploadID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, uploadID)
}
