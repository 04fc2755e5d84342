// Package qstore implements store.Store over a remote Qdrant server via the
// official github.com/qdrant/go-client gRPC client, for deployments that
// outgrow the embedded chromem-go backend (internal/store.ChromemStore).
// Grounded on the teacher's internal/qdrant/grpc_client.go connection,
// retry, and CRUD conventions, but collapsed onto store.Store directly
// rather than the teacher's generic Client/Point/Filter indirection: there
// is exactly one consumer of this package (the store.Store interface), so
// the extra layer the teacher carried for its own qdrant.Client abstraction
// buys nothing here.
package qstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/devmemory/navigator/internal/document"
	"github.com/devmemory/navigator/internal/store"
)

// Config configures the Qdrant gRPC client and collection.
type Config struct {
	// Host is the Qdrant server hostname or IP address. Default: "localhost".
	Host string
	// Port is the Qdrant gRPC port (not the HTTP REST port). Default: 6334.
	Port int
	// UseTLS enables TLS for the gRPC connection. Default: false.
	UseTLS bool
	// APIKey is the optional API key for authentication.
	APIKey string
	// CollectionName is the single flat collection this store reads/writes,
	// mirroring ChromemConfig.Collection (spec §3: one flat collection,
	// typing and scoping live in metadata).
	CollectionName string
	// VectorSize is the embedding dimensionality, used when the collection
	// doesn't already exist.
	VectorSize uint64
	// Distance is the distance metric for a newly created collection.
	// Default: Cosine.
	Distance qdrant.Distance
	// MaxMessageSize is the maximum gRPC message size in bytes. Default: 50MB.
	MaxMessageSize int
	// DialTimeout bounds the initial connection + health check. Default: 5s.
	DialTimeout time.Duration
	// RequestTimeout bounds each individual RPC. Default: 30s.
	RequestTimeout time.Duration
	// RetryAttempts is the number of retries for transient failures. Default: 3.
	RetryAttempts int
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.CollectionName == "" {
		c.CollectionName = "navigator"
	}
	if c.Distance == 0 {
		c.Distance = qdrant.Distance_Cosine
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
}

func (c *Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("vector size is required")
	}
	return nil
}

// QdrantStore implements store.Store over a remote Qdrant collection.
type QdrantStore struct {
	client   *qdrant.Client
	embedder store.Embedder
	config   Config
	logger   *zap.Logger
}

// NewQdrantStore dials collection, verifies connectivity, and creates the
// configured collection if it doesn't already exist.
func NewQdrantStore(config Config, embedder store.Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", store.ErrInvalidFilter)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid qdrant config: %w", err)
	}

	dialOpts := []grpc.DialOption{
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
			grpc.MaxCallSendMsgSize(config.MaxMessageSize),
		),
	}
	if !config.UseTLS {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:        config.Host,
		Port:        config.Port,
		UseTLS:      config.UseTLS,
		APIKey:      config.APIKey,
		GrpcOptions: dialOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, embedder: embedder, config: config, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	logger.Info("connecting to qdrant", zap.String("host", config.Host), zap.Int("port", config.Port))
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check failed: %w", err)
	}

	if err := s.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("qdrant connection established", zap.String("collection", config.CollectionName))
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	return s.retry(ctx, func() error {
		_, err := s.client.GetCollectionInfo(ctx, s.config.CollectionName)
		if err == nil {
			return nil
		}
		if st, ok := status.FromError(err); !ok || st.Code() != codes.NotFound {
			return err
		}
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.CollectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.config.VectorSize,
				Distance: s.config.Distance,
			}),
		})
	})
}

// Upsert embeds and stores docs, one embedding call batching every document.
func (s *QdrantStore) Upsert(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for i := range docs {
		if err := document.Validate(docs[i]); err != nil {
			return err
		}
		if docs[i].Common.Branch == "" {
			docs[i].Common.Branch = document.UnknownBranch
		}
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrEmbedFailed, err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		_, meta, err := store.Flatten(d)
		if err != nil {
			return err
		}
		points[i] = &qdrant.PointStruct{
			Id:      pointID(d.ID),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: payloadFromMeta(meta),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()
	return s.retry(ctx, func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.CollectionName,
			Points:         points,
		})
		return err
	})
}

// Get fetches documents by ID or by Where filter. A pure-ID lookup uses
// Qdrant's point Get; a filtered lookup scrolls the collection pushing down
// what equality terms it can and finishing the match in Go, mirroring
// ChromemStore.Get.
func (s *QdrantStore) Get(ctx context.Context, opts store.GetOptions) ([]document.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	if len(opts.IDs) > 0 && opts.Where.IsZero() {
		return s.getByIDs(ctx, opts.IDs, opts.Limit)
	}
	return s.scrollMatching(ctx, opts.IDs, opts.Where, opts.Limit)
}

func (s *QdrantStore) getByIDs(ctx context.Context, ids []string, limit int) ([]document.Document, error) {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	var retrieved []*qdrant.RetrievedPoint
	err := s.retry(ctx, func() error {
		result, err := s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: s.config.CollectionName,
			Ids:            pointIDs,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		retrieved = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching documents: %w", err)
	}

	docs := make([]document.Document, 0, len(retrieved))
	for _, p := range retrieved {
		d, err := store.Unflatten(docIDFromPayload(p.Payload), "", metaFromPayload(p.Payload))
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
		if limit > 0 && len(docs) >= limit {
			break
		}
	}
	return docs, nil
}

// scrollMatching walks the collection in pages, pushing down the conjunction
// of top-level equality predicates to Qdrant's filter and finishing the
// match ($in/$or/nested terms, and the optional ID allowlist) in Go, exactly
// as ChromemStore.Get does against chromem-go's native filter.
func (s *QdrantStore) scrollMatching(ctx context.Context, ids []string, where store.Where, limit int) ([]document.Document, error) {
	var idSet map[string]bool
	if len(ids) > 0 {
		idSet = make(map[string]bool, len(ids))
		for _, id := range ids {
			idSet[id] = true
		}
	}

	filter := filterFromPushdown(store.PushdownEq(where))

	docs := make([]document.Document, 0)
	var offset *qdrant.PointId
	const pageSize = 256

	for {
		var page []*qdrant.RetrievedPoint
		var next *qdrant.PointId
		err := s.retry(ctx, func() error {
			result, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
				CollectionName: s.config.CollectionName,
				Filter:         filter,
				Limit:          qdrant.PtrOf(uint32(pageSize)),
				Offset:         offset,
				WithPayload:    qdrant.NewWithPayload(true),
			})
			if err != nil {
				return err
			}
			page = result
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling documents: %w", err)
		}

		for _, p := range page {
			id := docIDFromPayload(p.Payload)
			if idSet != nil && !idSet[id] {
				continue
			}
			meta := metaFromPayload(p.Payload)
			if !where.Match(meta) {
				continue
			}
			d, err := store.Unflatten(id, "", meta)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
			if limit > 0 && len(docs) >= limit {
				return docs, nil
			}
		}

		if len(page) < pageSize {
			return docs, nil
		}
		next = page[len(page)-1].Id
		offset = next
	}
}

// Delete removes documents by ID or by Where filter.
func (s *QdrantStore) Delete(ctx context.Context, opts store.DeleteOptions) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	ids := opts.IDs
	if !opts.Where.IsZero() {
		docs, err := s.Get(ctx, store.GetOptions{Where: opts.Where})
		if err != nil {
			return err
		}
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	return s.retry(ctx, func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.CollectionName,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{Ids: pointIDs},
				},
			},
		})
		return err
	})
}

// Query performs a similarity search, pushing down the equality terms Qdrant
// can filter natively and finishing the remainder of the Where tree in Go
// over the returned candidates, same two-stage shape as ChromemStore.Query.
func (s *QdrantStore) Query(ctx context.Context, opts store.QueryOptions) ([]store.ScoredDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	if opts.TopK <= 0 {
		opts.TopK = 10
	}

	vector, err := s.embedder.EmbedQuery(ctx, opts.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrEmbedFailed, err)
	}

	filter := filterFromPushdown(store.PushdownEq(opts.Where))

	// Over-fetch against the pushed-down (partial) filter since the full
	// Where may reject some of what Qdrant returns.
	overfetch := opts.TopK * 4
	if overfetch < 50 {
		overfetch = 50
	}

	var results []*qdrant.ScoredPoint
	err = s.retry(ctx, func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.CollectionName,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(overfetch)),
			WithPayload:    qdrant.NewWithPayload(true),
			Filter:         filter,
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	out := make([]store.ScoredDocument, 0, opts.TopK)
	for _, r := range results {
		meta := metaFromPayload(r.Payload)
		if !opts.Where.Match(meta) {
			continue
		}
		d, err := store.Unflatten(docIDFromPayload(r.Payload), "", meta)
		if err != nil {
			return nil, err
		}
		out = append(out, store.ScoredDocument{Document: d, Score: float64(r.Score)})
		if len(out) >= opts.TopK {
			break
		}
	}
	return out, nil
}

// Count returns the number of documents matching where. An empty Where uses
// Qdrant's native (unfiltered) count; a non-empty Where falls back to Get,
// since Qdrant's count filter can't express the full predicate tree either.
func (s *QdrantStore) Count(ctx context.Context, where store.Where) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	if where.IsZero() {
		var total uint64
		err := s.retry(ctx, func() error {
			n, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: s.config.CollectionName})
			if err != nil {
				return err
			}
			total = n
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("counting documents: %w", err)
		}
		return int(total), nil
	}

	docs, err := s.Get(ctx, store.GetOptions{Where: where})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// qdrantIDNamespace scopes the deterministic UUIDs minted for point IDs.
// Qdrant point IDs must be either an unsigned integer or a well-formed UUID
// (spec document IDs are "<type>:<hash>" strings, neither), so point IDs are
// derived from the document ID rather than used directly; the original ID
// always round-trips through doc_json in the payload.
var qdrantIDNamespace = uuid.MustParse("6f9add89-6a1c-4f67-9a1f-6d5c2b6c9b1e")

func pointID(docID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(qdrantIDNamespace, []byte(docID)).String())
}

func payloadFromMeta(meta map[string]string) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(meta))
	for k, v := range meta {
		payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
	}
	return payload
}

func metaFromPayload(payload map[string]*qdrant.Value) map[string]string {
	meta := make(map[string]string, len(payload))
	for k, v := range payload {
		if s := v.GetStringValue(); s != "" {
			meta[k] = s
		}
	}
	return meta
}

// docIDFromPayload recovers the original document ID from the stored
// doc_json payload (store.Unflatten needs it only for its legacy fallback
// path, but the ID itself lives inside doc_json's own "id" field).
func docIDFromPayload(payload map[string]*qdrant.Value) string {
	raw := payload["doc_json"].GetStringValue()
	return document.ExtractID(raw)
}

func filterFromPushdown(eq map[string]string) *qdrant.Filter {
	if len(eq) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(eq))
	for field, value := range eq {
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   field,
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
				},
			},
		})
	}
	return &qdrant.Filter{Must: must}
}

// retry retries op with exponential backoff on transient failures, mirroring
// the teacher's GRPCClient.retryOperation.
func (s *QdrantStore) retry(ctx context.Context, op func() error) error {
	var lastErr error
	backoff := time.Second

	for attempt := 0; attempt <= s.config.RetryAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransientError(err) {
			return err
		}
		if attempt == s.config.RetryAttempts {
			break
		}

		s.logger.Debug("retrying qdrant operation after transient error",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", s.config.RetryAttempts),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", s.config.RetryAttempts, lastErr)
}

func isTransientError(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

var _ store.Store = (*QdrantStore)(nil)
