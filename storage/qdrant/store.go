// Package qdrant implements storage.VectorStore on a Qdrant server.
//
// All namespaces share one collection named after the index; a record's
// namespace is a keyword payload field that every query filters on.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/minutia/core"
	"github.com/poiesic/minutia/storage"
	"github.com/qdrant/go-client/qdrant"
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	fieldNamespace = "namespace"
	fieldRecordID  = "recordId"

	maxNamespaces = 10000
)

// Config locates the server and the collection.
type Config struct {
	// Address is "host", "host:port" or a URL; an https scheme enables TLS.
	Address    string
	APIKey     string
	Collection string
	Dim        int
}

// Store implements storage.VectorStore and storage.RecordScanner.
type Store struct {
	client     *qdrant.Client
	collection string
	dim        int
	logger     *slog.Logger
}

var (
	_ storage.VectorStore   = (*Store)(nil)
	_ storage.RecordScanner = (*Store)(nil)
)

// Open connects to Qdrant and creates the collection when missing.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant collection name is required", core.ErrConfiguration)
	}
	if cfg.Dim <= 0 {
		return nil, fmt.Errorf("%w: qdrant vector dimension must be positive", core.ErrConfiguration)
	}
	host, port, useTLS, err := ParseAddress(cfg.Address)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", host, port, err)
	}

	s := &Store{
		client:     client,
		collection: cfg.Collection,
		dim:        cfg.Dim,
		logger:     slog.Default().With("component", "qdrant-store", "collection", cfg.Collection),
	}
	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// ParseAddress splits an address into host, port and TLS flag.
func ParseAddress(addr string) (host string, port int, useTLS bool, err error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "localhost", DefaultPort, false, nil
	}
	if strings.Contains(addr, "://") {
		u, perr := url.Parse(addr)
		if perr != nil {
			return "", 0, false, fmt.Errorf("%w: invalid qdrant address %q: %w", core.ErrConfiguration, addr, perr)
		}
		useTLS = u.Scheme == "https"
		addr = u.Host
	}

	host, portStr, found := strings.Cut(addr, ":")
	if host == "" {
		return "", 0, false, fmt.Errorf("%w: invalid qdrant address %q", core.ErrConfiguration, addr)
	}
	port = DefaultPort
	if found {
		port, err = strconv.Atoi(portStr)
		if err != nil || port <= 0 {
			return "", 0, false, fmt.Errorf("%w: invalid qdrant port %q", core.ErrConfiguration, portStr)
		}
	}
	return host, port, useTLS, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	s.logger.Info("creating collection", "dim", s.dim)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	for _, field := range []string{fieldNamespace, storage.FieldDepartment} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("indexing payload field %s: %w", field, err)
		}
	}
	return nil
}

// Dim returns the configured vector dimension.
func (s *Store) Dim() int {
	return s.dim
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Upsert writes records as points keyed by a hash of namespace and ID.
func (s *Store) Upsert(ctx context.Context, namespace string, records ...*core.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	if namespace == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidRecord, core.ErrEmptyProject)
	}
	if err := storage.ValidateRecords(s.dim, records); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(pointID(namespace, r.ID)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(payloadFor(namespace, r)),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return err
	}
	s.logger.Debug("upserted records", "namespace", namespace, "count", len(records))
	return nil
}

// Query runs a filtered nearest neighbour search.
func (s *Store) Query(ctx context.Context, req storage.QueryRequest) ([]core.Match, error) {
	if err := storage.ValidateQuery(req, s.dim); err != nil {
		return nil, err
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(req.Vector...),
		Filter:         buildFilter(req),
		Limit:          qdrant.PtrOf(uint64(req.TopK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	matches := make([]core.Match, 0, len(points))
	for _, p := range points {
		id, md := recordFromPayload(p.GetPayload())
		matches = append(matches, core.Match{ID: id, Score: p.GetScore(), Metadata: md})
	}
	return storage.RankMatches(matches, req.TopK), nil
}

// Count returns the exact number of points in namespace, or in the
// collection when namespace is empty.
func (s *Store) Count(ctx context.Context, namespace string) (int, error) {
	req := &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	}
	if namespace != "" {
		req.Filter = &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(fieldNamespace, namespace)}}
	}
	n, err := s.client.Count(ctx, req)
	return int(n), err
}

// Namespaces lists the distinct namespace values.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	hits, err := s.client.Facet(ctx, &qdrant.FacetCounts{
		CollectionName: s.collection,
		Key:            fieldNamespace,
		Limit:          qdrant.PtrOf(uint64(maxNamespaces)),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(hits))
	for _, h := range hits {
		names = append(names, h.GetValue().GetStringValue())
	}
	return names, nil
}

// ForEach pages through namespace with the scroll API.
func (s *Store) ForEach(ctx context.Context, namespace string, batchSize int, fn func(batch []*core.IndexRecord) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	filter := &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch(fieldNamespace, namespace)}}

	var offset *qdrant.PointId
	for {
		points, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(batchSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return err
		}
		if len(points) == 0 {
			return nil
		}

		batch := make([]*core.IndexRecord, 0, len(points))
		for _, p := range points {
			id, md := recordFromPayload(p.GetPayload())
			batch = append(batch, &core.IndexRecord{
				ID:        id,
				Namespace: namespace,
				Vector:    denseVector(p.GetVectors().GetVector()),
				Metadata:  md,
			})
		}
		if err := fn(batch); err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		offset = next
	}
}

// pointID maps a namespaced record ID onto Qdrant's numeric IDs.
func pointID(namespace, id string) uint64 {
	return uint64(core.IDFromContent(namespace + "\x00" + id))
}

func payloadFor(namespace string, r *core.IndexRecord) map[string]any {
	payload := map[string]any{
		fieldNamespace: namespace,
		fieldRecordID:  r.ID,
	}
	for k, v := range storage.MetadataFields(r.Metadata) {
		payload[k] = v
	}
	return payload
}

func recordFromPayload(payload map[string]*qdrant.Value) (string, core.RecordMetadata) {
	fields := make(map[string]string, len(payload))
	for k, v := range payload {
		fields[k] = v.GetStringValue()
	}
	return fields[fieldRecordID], storage.ParseMetadataFields(fields)
}

func buildFilter(req storage.QueryRequest) *qdrant.Filter {
	var must []*qdrant.Condition
	if !req.AllNamespaces {
		must = append(must, qdrant.NewMatch(fieldNamespace, req.Namespace))
	}
	for _, k := range slices.Sorted(maps.Keys(req.Filter)) {
		must = append(must, qdrant.NewMatch(k, req.Filter[k]))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// denseVector reads the dense payload, falling back to the deprecated
// flat data field older servers fill in.
func denseVector(v *qdrant.VectorOutput) []float32 {
	if data := v.GetDense().GetData(); len(data) > 0 {
		return data
	}
	return v.GetData()
}
