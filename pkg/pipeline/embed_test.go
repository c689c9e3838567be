package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chatrecall/chatrecall/pkg/chatparse"
)

// fakeEmbedder scripts batch and per-item behavior. failBatches holds
// zero-based batch numbers whose EmbedBatch call fails; failTexts holds
// contents whose per-item Embed call fails.
type fakeEmbedder struct {
	batchCalls  int
	singleCalls int
	failBatches map[int]bool
	failTexts   map[string]bool
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	call := f.batchCalls
	f.batchCalls++
	if f.failBatches[call] {
		return nil, errors.New("provider overloaded")
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1, 2}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.singleCalls++
	if f.failTexts[text] {
		return nil, errors.New("provider overloaded")
	}
	return []float32{1, 2}, nil
}

func messagesN(n int) []chatparse.Message {
	msgs := make([]chatparse.Message, n)
	for i := range msgs {
		msgs[i] = chatparse.Message{
			Sender:    "Anna",
			Content:   fmt.Sprintf("message number %d", i),
			Timestamp: "01/02/2024, 10:00",
		}
	}
	return msgs
}

func TestEmbedAll_HappyPath(t *testing.T) {
	emb := &fakeEmbedder{}
	b := NewBatcher(emb, 4, 0, 30)

	var progress []int
	records, err := b.EmbedAll(context.Background(), "u1", messagesN(10), func(processed, total int) {
		progress = append(progress, processed)
		if total != 10 {
			t.Fatalf("total = %d, want 10", total)
		}
	})
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("records = %d, want 10", len(records))
	}
	if emb.batchCalls != 3 || emb.singleCalls != 0 {
		t.Fatalf("batchCalls=%d singleCalls=%d, want 3/0", emb.batchCalls, emb.singleCalls)
	}
	want := []int{4, 8, 10}
	for i, p := range want {
		if progress[i] != p {
			t.Fatalf("progress[%d] = %d, want %d", i, progress[i], p)
		}
	}
}

func TestEmbedAll_IndexesAreGlobalAndIncreasing(t *testing.T) {
	b := NewBatcher(&fakeEmbedder{}, 3, 0, 30)

	records, err := b.EmbedAll(context.Background(), "u1", messagesN(7), nil)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	seen := make(map[string]bool)
	for i, r := range records {
		if r.Index != i {
			t.Fatalf("record %d has Index %d", i, r.Index)
		}
		if r.ID == "" || seen[r.ID] {
			t.Fatalf("record %d has missing or duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
	}
}

func TestEmbedAll_BatchFailureFallsBackPerMessage(t *testing.T) {
	emb := &fakeEmbedder{
		failBatches: map[int]bool{1: true},
		failTexts:   map[string]bool{"message number 5": true},
	}
	b := NewBatcher(emb, 4, 0, 30)

	// Batch 1 (messages 4-7) fails wholesale; message 5 also fails the
	// per-item retry. Everything else survives.
	records, err := b.EmbedAll(context.Background(), "u1", messagesN(10), nil)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(records) != 9 {
		t.Fatalf("records = %d, want 9", len(records))
	}
	if emb.singleCalls != 4 {
		t.Fatalf("singleCalls = %d, want 4", emb.singleCalls)
	}

	indexes := make(map[int]bool)
	for _, r := range records {
		indexes[r.Index] = true
	}
	if indexes[5] {
		t.Fatal("lost message kept its record")
	}
	for _, i := range []int{4, 6, 7} {
		if !indexes[i] {
			t.Fatalf("salvaged message %d missing from records", i)
		}
	}
}

func TestEmbedAll_CountMismatchTriggersFallback(t *testing.T) {
	emb := &shortEmbedder{}
	b := NewBatcher(emb, 4, 0, 30)

	records, err := b.EmbedAll(context.Background(), "u1", messagesN(4), nil)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want 4", len(records))
	}
	if emb.singleCalls != 4 {
		t.Fatalf("singleCalls = %d, want 4 (mismatched batch must be retried per message)", emb.singleCalls)
	}
}

// shortEmbedder returns one vector fewer than requested from EmbedBatch.
type shortEmbedder struct {
	singleCalls int
}

func (s *shortEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts)-1)
	for i := range vectors {
		vectors[i] = []float32{1, 2}
	}
	return vectors, nil
}

func (s *shortEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.singleCalls++
	return []float32{1, 2}, nil
}

func TestEmbedAll_AllFailuresExhausted(t *testing.T) {
	emb := &fakeEmbedder{
		failBatches: map[int]bool{0: true},
		failTexts: map[string]bool{
			"message number 0": true,
			"message number 1": true,
			"message number 2": true,
		},
	}
	b := NewBatcher(emb, 10, 0, 30)

	_, err := b.EmbedAll(context.Background(), "u1", messagesN(3), nil)
	if !errors.Is(err, ErrEmbeddingExhausted) {
		t.Fatalf("err = %v, want ErrEmbeddingExhausted", err)
	}
}
