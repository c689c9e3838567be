// Package pipeline runs the chat-export ingestion: parse, filter, embed,
// write, finalize. One background task per upload; progress is published
// through the Tracker and polled over HTTP.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"github.com/chatrecall/chatrecall/pkg/chatparse"
	"github.com/chatrecall/chatrecall/pkg/ingestconfig"
	"github.com/chatrecall/chatrecall/pkg/sessionstore"
	"github.com/chatrecall/chatrecall/pkg/vectorstore"
)

// VectorWriter persists embedding records.
type VectorWriter interface {
	EnsureCollection(ctx context.Context, collection string) error
	UpsertRecords(ctx context.Context, collection string, records []vectorstore.Record, onChunk func(written, total int)) (int, error)
}

// LanguageDetector classifies the languages of a message sample.
type LanguageDetector interface {
	Detect(ctx context.Context, sample string) []string
}

// SessionStore records the terminal session summary.
type SessionStore interface {
	CreateSession(ctx context.Context, summary sessionstore.Summary) error
}

// StartRequest is the validated input for one ingestion run.
type StartRequest struct {
	RawContent  string
	Participant string
	DisplayName string
	OwnerID     string
}

// StartResult is returned to the caller immediately; the run continues in
// the background and is observed through the Tracker.
type StartResult struct {
	SessionID string `json:"sessionId"`
	UploadID  string `json:"uploadId"`
	Status    string `json:"status"`
}

var errParticipantRequired = errors.New("participant name is required")

// Runner owns the ingestion pipeline and its worker pool.
type Runner struct {
	cfg      *ingestconfig.Config
	tracker  *Tracker
	batcher  *Batcher
	writer   VectorWriter
	detector LanguageDetector
	sessions SessionStore
	pool     *ants.Pool
}

// NewRunner builds a runner with a bounded worker pool. The pool caps
// concurrent uploads; submissions beyond the cap queue inside ants.
func NewRunner(cfg *ingestconfig.Config, tracker *Tracker, embedder Embedder, writer VectorWriter, detector LanguageDetector, sessions SessionStore) (*Runner, error) {
	workers := cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Runner{
		cfg:     cfg,
		tracker: tracker,
		batcher: NewBatcher(embedder, cfg.Embedding.BatchSize,
			time.Duration(cfg.Embedding.BatchDelayMs)*time.Millisecond,
			cfg.Pipeline.MaxLossPercent),
		writer:   writer,
		detector: detector,
		sessions: sessions,
		pool:     pool,
	}, nil
}

// Close releases the worker pool.
func (r *Runner) Close() {
	r.pool.Release()
}

// Start validates the request, seeds initial progress and hands the run to
// the pool. It returns before any parsing happens; a poller that reads the
// upload id immediately always finds a record.
func (r *Runner) Start(req StartRequest) (StartResult, error) {
	if strings.TrimSpace(req.RawContent) == "" {
		return StartResult{}, EmptyFileError{}
	}
	if strings.TrimSpace(req.Participant) == "" {
		return StartResult{}, errParticipantRequired
	}

	sessionID := uuid.New().String()
	uploadID := uuid.New().String()

	r.tracker.Set(uploadID, Progress{
		Stage:    StageReading,
		Progress: progressReadingStart,
		Message:  "Reading uploaded file",
	})

	err := r.pool.Submit(func() {
		r.run(req, sessionID, uploadID)
	})
	if err != nil {
		r.tracker.Set(uploadID, Progress{
			Stage:   StageError,
			Message: "processing could not be scheduled, try again later",
		})
		return StartResult{}, fmt.Errorf("failed to schedule processing: %w", err)
	}

	return StartResult{
		SessionID: sessionID,
		UploadID:  uploadID,
		Status:    "processing",
	}, nil
}

func (r *Runner) run(req StartRequest, sessionID, uploadID string) {
	timeout := time.Duration(r.cfg.Pipeline.TimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := r.execute(ctx, req, sessionID, uploadID); err != nil {
		log.Error().
			Err(err).
			Str("upload_id", uploadID).
			Str("participant", req.Participant).
			Msg("pipeline run failed")
		r.tracker.Set(uploadID, Progress{
			Stage:   StageError,
			Message: errorMessage(err),
		})
	}
}

func (r *Runner) execute(ctx context.Context, req StartRequest, sessionID, uploadID string) error {
	r.tracker.Set(uploadID, Progress{
		Stage:    StageParsing,
		Progress: progressParsingStart,
		Message:  "Parsing messages",
	})

	corpus, err := chatparse.Parse(req.RawContent)
	if err != nil {
		return err
	}

	log.Debug().
		Str("upload_id", uploadID).
		Int("messages", len(corpus.Messages)).
		Int("participants", len(corpus.Participants)).
		Float64("success_rate", corpus.SuccessRate).
		Msg("export parsed")

	filtered, err := chatparse.FilterBySender(corpus, req.Participant, r.cfg.Pipeline.MinMessages)
	if err != nil {
		return err
	}

	r.tracker.Set(uploadID, Progress{
		Stage:    StageParsing,
		Progress: progressParsingDone,
		Message:  fmt.Sprintf("Found %d messages from %s", len(filtered), req.Participant),
		Total:    len(filtered),
	})

	stats := chatparse.ComputeStats(filtered)
	languages := r.detector.Detect(ctx, languageSample(filtered, r.cfg.Language.SampleSize))
	log.Debug().
		Str("upload_id", uploadID).
		Int("message_count", stats.MessageCount).
		Float64("avg_chars", stats.AvgChars).
		Strs("languages", languages).
		Msg("corpus analyzed")

	r.tracker.Set(uploadID, Progress{
		Stage:    StageAnalyzing,
		Progress: progressAnalyzingStart,
		Message:  "Generating embeddings",
		Total:    len(filtered),
	})

	records, err := r.batcher.EmbedAll(ctx, uploadID, filtered, func(processed, total int) {
		r.tracker.Set(uploadID, Progress{
			Stage:     StageAnalyzing,
			Progress:  interpolate(progressAnalyzingStart, progressAnalyzingEnd, processed, total),
			Message:   fmt.Sprintf("Embedded %d of %d messages", processed, total),
			Total:     total,
			Processed: processed,
		})
	})
	if err != nil {
		return err
	}

	collection := collectionName(r.cfg.Milvus.CollectionPrefix, req.Participant, sessionID)

	r.tracker.Set(uploadID, Progress{
		Stage:     StageFinalizing,
		Progress:  progressWritingStart,
		Message:   "Storing vectors",
		Total:     len(records),
		Processed: 0,
	})

	if err := r.writer.EnsureCollection(ctx, collection); err != nil {
		return err
	}

	written, err := r.writer.UpsertRecords(ctx, collection, records, func(done, total int) {
		r.tracker.Set(uploadID, Progress{
			Stage:     StageFinalizing,
			Progress:  interpolate(progressWritingStart, progressWritingEnd, done, total),
			Message:   fmt.Sprintf("Stored %d of %d vectors", done, total),
			Total:     total,
			Processed: done,
		})
	})
	if err != nil {
		return err
	}

	// Best effort: a session row that fails to write must not fail a run
	// whose vectors are already persisted.
	if err := r.sessions.CreateSession(ctx, sessionstore.Summary{
		SessionID:         sessionID,
		ParticipantName:   req.Participant,
		DisplayName:       req.DisplayName,
		OwnerID:           req.OwnerID,
		MessageCount:      written,
		CollectionName:    collection,
		DetectedLanguages: languages,
	}); err != nil {
		log.Warn().
			Err(err).
			Str("upload_id", uploadID).
			Str("session_id", sessionID).
			Msg("failed to record session summary")
	}

	r.tracker.Set(uploadID, Progress{
		Stage:     StageComplete,
		Progress:  progressComplete,
		Message:   fmt.Sprintf("Processed %d messages from %s", written, req.Participant),
		Total:     len(filtered),
		Processed: written,
	})

	log.Info().
		Str("upload_id", uploadID).
		Str("session_id", sessionID).
		Str("collection", collection).
		Int("written", written).
		Msg("pipeline run complete")

	return nil
}

// languageSample joins the first n message contents for classification.
func languageSample(messages []chatparse.Message, n int) string {
	if n <= 0 {
		n = 10
	}
	if n > len(messages) {
		n = len(messages)
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = messages[i].Content
	}
	return strings.Join(parts, "\n")
}

// collectionName builds a Milvus-safe collection name from the participant
// and the first 8 hex chars of the session id.
func collectionName(prefix, participant, sessionID string) string {
	if prefix == "" {
		prefix = "chat"
	}

	var b strings.Builder
	for _, r := range strings.ToLower(participant) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	sanitized := strings.Trim(b.String(), "_")
	if sanitized == "" {
		sanitized = "participant"
	}

	id := strings.ReplaceAll(sessionID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}

	return fmt.Sprintf("%s_%s_%s", prefix, sanitized, id)
}

// interpolate maps processed/total onto [lo, hi].
func interpolate(lo, hi, processed, total int) int {
	if total <= 0 {
		return lo
	}
	if processed > total {
		processed = total
	}
	return lo + (hi-lo)*processed/total
}
