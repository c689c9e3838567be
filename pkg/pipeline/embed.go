package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chatrecall/chatrecall/pkg/chatparse"
	"github.com/chatrecall/chatrecall/pkg/vectorstore"
)

// Embedder is the provider capability the batcher consumes.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Batcher converts filtered messages into embedding records in fixed-size
// batches. A failed batch degrades to one embed call per message so that a
// transient provider error costs at most the messages that individually
// fail, never the whole batch.
type Batcher struct {
	embedder       Embedder
	batchSize      int
	batchDelay     time.Duration
	maxLossPercent int
}

// NewBatcher creates a batcher. batchSize <= 0 falls back to 100,
// maxLossPercent <= 0 to 30.
func NewBatcher(embedder Embedder, batchSize int, batchDelay time.Duration, maxLossPercent int) *Batcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxLossPercent <= 0 {
		maxLossPercent = 30
	}
	return &Batcher{
		embedder:       embedder,
		batchSize:      batchSize,
		batchDelay:     batchDelay,
		maxLossPercent: maxLossPercent,
	}
}

// EmbedAll embeds messages batch by batch. Record Index is the message's
// position in the input sequence, so indexes stay unique and increasing even
// when some messages are lost to embedding failures. onBatch (optional) is
// invoked after each batch with running totals of attempted messages.
// Returns ErrEmbeddingExhausted when not a single message embedded.
func (b *Batcher) EmbedAll(ctx context.Context, uploadID string, messages []chatparse.Message, onBatch func(processed, total int)) ([]vectorstore.Record, error) {
	records := make([]vectorstore.Record, 0, len(messages))
	lost := 0

	for start := 0; start < len(messages); start += b.batchSize {
		end := start + b.batchSize
		if end > len(messages) {
			end = len(messages)
		}
		batch := messages[start:end]

		texts := make([]string, len(batch))
		for i, msg := range batch {
			texts[i] = msg.Content
		}

		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("embedding count mismatch: requested %d, got %d", len(batch), len(vectors))
		}

		if err != nil {
			log.Warn().
				Err(err).
				Str("upload_id", uploadID).
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Msg("batch embedding failed, retrying per message")

			salvaged, batchLost := b.embedOneByOne(ctx, uploadID, batch, start)
			records = append(records, salvaged...)
			lost += batchLost
		} else {
			for i, msg := range batch {
				records = append(records, newRecord(msg, start+i, vectors[i]))
			}
		}

		if onBatch != nil {
			onBatch(end, len(messages))
		}

		if b.batchDelay > 0 && end < len(messages) {
			select {
			case <-ctx.Done():
				return records, ctx.Err()
			case <-time.After(b.batchDelay):
			}
		}
	}

	if len(records) == 0 {
		return nil, ErrEmbeddingExhausted
	}

	if lost > 0 {
		lossPct := 100 * lost / len(messages)
		msg := "some messages could not be embedded"
		if lossPct > b.maxLossPercent {
			msg = "embedding loss rate above threshold, results will be sparse"
		}
		log.Warn().
			Str("upload_id", uploadID).
			Int("lost", lost).
			Int("total", len(messages)).
			Int("loss_pct", lossPct).
			Msg(msg)
	}

	return records, nil
}

func (b *Batcher) embedOneByOne(ctx context.Context, uploadID string, batch []chatparse.Message, offset int) ([]vectorstore.Record, int) {
	var salvaged []vectorstore.Record
	lost := 0
	for i, msg := range batch {
		vector, err := b.embedder.Embed(ctx, msg.Content)
		if err != nil {
			lost++
			log.Warn().
				Err(err).
				Str("upload_id", uploadID).
				Int("index", offset+i).
				Msg("per-message embedding failed, dropping message")
			continue
		}
		salvaged = append(salvaged, newRecord(msg, offset+i, vector))
	}
	return salvaged, lost
}

func newRecord(msg chatparse.Message, index int, vector []float32) vectorstore.Record {
	return vectorstore.Record{
		ID:        uuid.New().String(),
		Vector:    vector,
		Timestamp: msg.Timestamp,
		Sender:    msg.Sender,
		Index:     index,
		Content:   msg.Content,
	}
}
