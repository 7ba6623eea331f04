package redis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/RKBobe/CtxMemGem/vector"
)

const (
	keyspace       = "ctxmemgem"
	collectionsKey = keyspace + ":collections"
)

func NewRedisVectorStore(cfg vector.Config) (vector.Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &redisVectorStore{client}, nil
}

type redisVectorStore struct {
	client *goredis.Client
}

func (s *redisVectorStore) Replace(ctx context.Context, name string) (vector.Collection, error) {
	c := &collection{name, s.client}

	err := s.client.FTDropIndexWithArgs(ctx, c.index(), &goredis.FTDropIndexOptions{
		DeleteDocs: true,
	}).Err()
	if err != nil && !isUnknownIndex(err) {
		return nil, err
	}

	// Hashes can outlive the index when a previous ingest stored nothing,
	// so sweep the prefix as well.
	if err := c.deleteKeys(ctx); err != nil {
		return nil, err
	}

	if err := s.client.SAdd(ctx, collectionsKey, name).Err(); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *redisVectorStore) Collection(ctx context.Context, name string) (vector.Collection, error) {
	ok, err := s.client.SIsMember(ctx, collectionsKey, name).Result()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, vector.ErrCollectionNotFound
	}

	return &collection{name, s.client}, nil
}

func (s *redisVectorStore) List(ctx context.Context) ([]vector.CollectionInfo, error) {
	names, err := s.client.SMembers(ctx, collectionsKey).Result()
	if err != nil {
		return nil, err
	}

	sort.Strings(names)

	infos := make([]vector.CollectionInfo, 0, len(names))
	for _, name := range names {
		c := &collection{name, s.client}

		count, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}

		infos = append(infos, vector.CollectionInfo{
			Name:  name,
			Count: count,
		})
	}

	return infos, nil
}

func (s *redisVectorStore) Close() error {
	return s.client.Close()
}

type collection struct {
	name   string
	client *goredis.Client
}

func (c *collection) index() string {
	return keyspace + ":idx:" + c.name
}

func (c *collection) prefix() string {
	return keyspace + ":" + c.name + ":"
}

func (c *collection) key(id string) string {
	return c.prefix() + id
}

func (c *collection) Name() string {
	return c.name
}

func (c *collection) AddDocuments(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(docs))
	keys := make([]string, len(docs))
	for i, doc := range docs {
		if _, ok := seen[doc.ID]; ok {
			return vector.ErrDuplicateID
		}
		seen[doc.ID] = struct{}{}

		keys[i] = c.key(doc.ID)
	}

	stored, err := c.client.Exists(ctx, keys...).Result()
	if err != nil {
		return err
	}

	if stored > 0 {
		return vector.ErrDuplicateID
	}

	if err := c.ensureIndex(ctx, len(docs[0].Embedding)); err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	for i, doc := range docs {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return err
		}

		pipe.HSet(ctx, keys[i],
			"content", doc.Content,
			"metadata", string(metadata),
			"embedding", encodeVector(doc.Embedding),
		)
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (c *collection) ensureIndex(ctx context.Context, dim int) error {
	err := c.client.FTCreate(ctx, c.index(),
		&goredis.FTCreateOptions{
			OnHash: true,
			Prefix: []interface{}{c.prefix()},
		},
		&goredis.FieldSchema{
			FieldName: "content",
			FieldType: goredis.SearchFieldTypeText,
		},
		&goredis.FieldSchema{
			FieldName: "embedding",
			FieldType: goredis.SearchFieldTypeVector,
			VectorArgs: &goredis.FTVectorArgs{
				HNSWOptions: &goredis.FTHNSWOptions{
					Type:           "FLOAT32",
					Dim:            dim,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Err()

	if err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return nil
	}

	return err
}

func (c *collection) QueryEmbedding(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return []vector.Result{}, nil
	}

	query := fmt.Sprintf("*=>[KNN %d @embedding $vec AS distance]", k)

	res, err := c.client.FTSearchWithArgs(ctx, c.index(), query, &goredis.FTSearchOptions{
		Return: []goredis.FTSearchReturn{
			{FieldName: "content"},
			{FieldName: "metadata"},
			{FieldName: "distance"},
		},
		SortBy: []goredis.FTSearchSortBy{
			{FieldName: "distance", Asc: true},
		},
		Limit: k,
		Params: map[string]interface{}{
			"vec": encodeVector(embedding),
		},
		DialectVersion: 2,
	}).Result()
	if err != nil {
		// The index is created lazily on first write, so an unknown index
		// is an empty collection rather than a failure.
		if isUnknownIndex(err) {
			return []vector.Result{}, nil
		}

		return nil, err
	}

	results := make([]vector.Result, 0, len(res.Docs))
	for _, doc := range res.Docs {
		var metadata map[string]string
		if raw, ok := doc.Fields["metadata"]; ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
				return nil, err
			}
		}

		var distance float64
		if raw, ok := doc.Fields["distance"]; ok {
			d, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, err
			}

			distance = d
		}

		results = append(results, vector.Result{
			ID:         strings.TrimPrefix(doc.ID, c.prefix()),
			Metadata:   metadata,
			Content:    doc.Fields["content"],
			Similarity: float32(1 - distance),
		})
	}

	return results, nil
}

func (c *collection) Count(ctx context.Context) (int, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix()+"*", 512).Result()
		if err != nil {
			return 0, err
		}

		count += len(keys)

		if next == 0 {
			return count, nil
		}

		cursor = next
	}
}

func (c *collection) deleteKeys(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix()+"*", 512).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		if next == 0 {
			return nil
		}

		cursor = next
	}
}

// encodeVector packs an embedding as the little-endian FLOAT32 blob the
// RediSearch VECTOR type expects.
func encodeVector(embedding []float32) []byte {
	buf := make([]byte, 4*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	return buf
}

func isUnknownIndex(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index")
}
