// Package vectorstore writes embedding records into Milvus collections.
// Collections are created on demand with an HNSW index; records are written
// in fixed-size chunks, one upsert per chunk, keyed by record id.
package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/chatrecall/chatrecall/pkg/ingestconfig"
	"github.com/chatrecall/chatrecall/pkg/util"
)

const (
	maxSenderLen    = 511
	maxTimestampLen = 63
	maxContentLen   = 8191
)

// api is the slice of the Milvus client surface the writer needs. The
// production implementation wraps the SDK client; tests use a fake.
type api interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, shards int32) error
	CreateIndex(ctx context.Context, collection, field string, idx entity.Index) error
	LoadCollection(ctx context.Context, collection string) error
	Upsert(ctx context.Context, collection string, columns ...entity.Column) error
	Flush(ctx context.Context, collection string) error
	Close() error
}

type sdkAPI struct {
	c client.Client
}

func (s sdkAPI) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.c.HasCollection(ctx, name)
}

func (s sdkAPI) CreateCollection(ctx context.Context, schema *entity.Schema, shards int32) error {
	return s.c.CreateCollection(ctx, schema, shards)
}

func (s sdkAPI) CreateIndex(ctx context.Context, collection, field string, idx entity.Index) error {
	return s.c.CreateIndex(ctx, collection, field, idx, false)
}

func (s sdkAPI) LoadCollection(ctx context.Context, collection string) error {
	return s.c.LoadCollection(ctx, collection, false)
}

func (s sdkAPI) Upsert(ctx context.Context, collection string, columns ...entity.Column) error {
	_, err := s.c.Upsert(ctx, collection, "", columns...)
	return err
}

func (s sdkAPI) Flush(ctx context.Context, collection string) error {
	return s.c.Flush(ctx, collection, false)
}

func (s sdkAPI) Close() error {
	return s.c.Close()
}

// Writer persists embedding records into Milvus.
type Writer struct {
	api       api
	dimension int
	chunkSize int
	index     ingestconfig.MilvusIndexConfig
}

// NewWriter connects to Milvus using the configured address.
func NewWriter(ctx context.Context, cfg *ingestconfig.Config, dimension int) (*Writer, error) {
	c, err := client.NewClient(ctx, client.Config{
		Address: cfg.Milvus.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to Milvus: %w", err)
	}
	return newWriter(sdkAPI{c: c}, cfg, dimension), nil
}

func newWriter(a api, cfg *ingestconfig.Config, dimension int) *Writer {
	chunkSize := cfg.Milvus.UpsertChunkSize
	if chunkSize <= 0 {
		chunkSize = 100
	}
	return &Writer{
		api:       a,
		dimension: dimension,
		chunkSize: chunkSize,
		index:     cfg.Milvus.Index,
	}
}

// EnsureCollection creates the collection (with an HNSW index) if it does not
// exist, and loads it. An existence-check failure is returned as-is: the
// caller treats it as fatal, unlike a plain "not found".
func (w *Writer) EnsureCollection(ctx context.Context, collection string) error {
	exists, err := w.api.HasCollection(ctx, collection)
	if err != nil {
		return fmt.Errorf("checking collection existence: %w", err)
	}
	if exists {
		if err := w.api.LoadCollection(ctx, collection); err != nil {
			return fmt.Errorf("loading collection: %w", err)
		}
		return nil
	}

	schema := &entity.Schema{
		CollectionName: collection,
		Description:    "Per-participant chat messages with embeddings",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "sender",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       "timestamp",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:     "idx",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       "content",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "8192"},
			},
			{
				Name:       "embedding",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", w.dimension)},
			},
		},
	}

	if err := w.api.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(metricFromConfig(w.index.Metric), w.index.M, w.index.EfConstruction)
	if err != nil {
		return fmt.Errorf("creating index params: %w", err)
	}
	if err := w.api.CreateIndex(ctx, collection, "embedding", idx); err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if err := w.api.LoadCollection(ctx, collection); err != nil {
		return fmt.Errorf("loading collection: %w", err)
	}

	return nil
}

// UpsertRecords writes records in fixed-size chunks and flushes afterwards.
// onChunk (optional) is invoked after each chunk with running totals.
// Any chunk failure aborts the whole write; there is no per-item fallback
// here since a wholesale retry is cheap and idempotent by record id.
func (w *Writer) UpsertRecords(ctx context.Context, collection string, records []Record, onChunk func(written, total int)) (int, error) {
	written := 0
	for start := 0; start < len(records); start += w.chunkSize {
		end := start + w.chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if err := w.upsertChunk(ctx, collection, chunk); err != nil {
			return written, fmt.Errorf("upserting chunk at offset %d: %w", start, err)
		}
		written += len(chunk)

		if onChunk != nil {
			onChunk(written, len(records))
		}
	}

	if written > 0 {
		if err := w.api.Flush(ctx, collection); err != nil {
			return written, fmt.Errorf("flushing collection: %w", err)
		}
	}

	return written, nil
}

func (w *Writer) upsertChunk(ctx context.Context, collection string, chunk []Record) error {
	ids := make([]string, len(chunk))
	senders := make([]string, len(chunk))
	timestamps := make([]string, len(chunk))
	indexes := make([]int64, len(chunk))
	contents := make([]string, len(chunk))
	vectors := make([][]float32, len(chunk))

	for i, r := range chunk {
		ids[i] = r.ID
		senders[i] = util.TruncateExact(r.Sender, maxSenderLen)
		timestamps[i] = util.TruncateExact(r.Timestamp, maxTimestampLen)
		indexes[i] = int64(r.Index)
		contents[i] = util.TruncateExact(r.Content, maxContentLen)
		vectors[i] = r.Vector
	}

	return w.api.Upsert(ctx, collection,
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("sender", senders),
		entity.NewColumnVarChar("timestamp", timestamps),
		entity.NewColumnInt64("idx", indexes),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnFloatVector("embedding", w.dimension, vectors),
	)
}

// Close closes the Milvus connection.
func (w *Writer) Close() error {
	return w.api.Close()
}

func metricFromConfig(metric string) entity.MetricType {
	switch strings.ToUpper(strings.TrimSpace(metric)) {
	case "L2":
		return entity.L2
	case "IP", "INNER_PRODUCT":
		return entity.IP
	case "COSINE":
		return entity.COSINE
	default:
		return entity.COSINE
	}
}
