package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chatrecall/chatrecall/pkg/chatparse"
)

// ErrEmbeddingExhausted means every message in the run failed to embed,
// including the per-message fallbacks.
var ErrEmbeddingExhausted = errors.New("no messages could be embedded")

// EmptyFileError reports an upload with no usable content.
type EmptyFileError struct{}

func (e EmptyFileError) Error() string {
	return "the uploaded file is empty"
}

// errorMessage turns a pipeline failure into the actionable text shown to
// the polling client. The progress record is the caller's only diagnostic
// channel, so validation errors keep their specific wording and provider
// errors are classified by their failure text.
func errorMessage(err error) string {
	var emptyErr EmptyFileError
	var noMsgErr *chatparse.NoMessagesError
	var insufficientErr *chatparse.InsufficientMessagesError

	switch {
	case errors.As(err, &emptyErr):
		return emptyErr.Error()
	case errors.As(err, &noMsgErr):
		return noMsgErr.Error()
	case errors.As(err, &insufficientErr):
		return insufficientErr.Error()
	case errors.Is(err, chatparse.ErrNoMessages):
		return "no messages could be parsed from the file; check the export format"
	case errors.Is(err, ErrEmbeddingExhausted):
		return "embedding failed for every message; check the embedding service"
	}

	text := err.Error()
	switch {
	case strings.Contains(text, "embedding"):
		return fmt.Sprintf("embedding configuration error: %v", err)
	case strings.Contains(text, "collection") || strings.Contains(text, "upsert") ||
		strings.Contains(text, "Milvus") || strings.Contains(text, "milvus"):
		return fmt.Sprintf("vector database error: %v", err)
	default:
		return fmt.Sprintf("processing failed: %v", err)
	}
}
