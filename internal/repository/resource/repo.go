// Package resource stores reading resources as hashes behind an FT TAG index
// and serves the corpus reads of the recommendation pipeline.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/readnext/internal/db"
	"github.com/kailas-cloud/readnext/internal/domain"
	domres "github.com/kailas-cloud/readnext/internal/domain/resource"
	"github.com/kailas-cloud/readnext/internal/domain/text"
)

const (
	defaultKeyPrefix = "readnext:resource:"
	defaultMaxScan   = 5000
	defaultTagCap    = 10
	multiBatch       = 500
)

// store is the consumer interface for resources (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config tunes key layout and scan guards.
type Config struct {
	KeyPrefix string
	MaxScan   int
	TagCap    int
}

// Repo implements corpus access for usecase/recommend and usecase/ingest.
type Repo struct {
	store     store
	keyPrefix string
	maxScan   int
	tagCap    int
	now       func() time.Time
}

// New creates a resource repository.
func New(s store, cfg Config) *Repo {
	r := &Repo{
		store:     s,
		keyPrefix: cfg.KeyPrefix,
		maxScan:   cfg.MaxScan,
		tagCap:    cfg.TagCap,
		now:       time.Now,
	}
	if r.keyPrefix == "" {
		r.keyPrefix = defaultKeyPrefix
	}
	if r.maxScan <= 0 {
		r.maxScan = defaultMaxScan
	}
	if r.tagCap <= 0 {
		r.tagCap = defaultTagCap
	}
	return r
}

// IndexName is the FT index covering resource hashes.
func (r *Repo) IndexName() string {
	return r.keyPrefix + "idx"
}

// EnsureIndex creates the TAG index; an existing index counts as success.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.IndexName()).
		Prefix(r.keyPrefix).
		Tag(fieldTags, tagSeparator).
		Numeric(fieldIngestedAt).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return storeErr("create index", err)
	}
	return nil
}

// FetchAll returns every stored resource. Corpora above the scan guard fail
// instead of being loaded into memory.
func (r *Repo) FetchAll(ctx context.Context) ([]domres.Resource, error) {
	keys, err := r.store.Scan(ctx, r.keyPrefix+"*")
	if err != nil {
		return nil, storeErr("scan", err)
	}
	if len(keys) > r.maxScan {
		return nil, fmt.Errorf("corpus too large: %d keys exceeds %d: %w",
			len(keys), r.maxScan, domain.ErrStoreUnavailable)
	}

	out := make([]domres.Resource, 0, len(keys))
	for start := 0; start < len(keys); start += multiBatch {
		end := min(start+multiBatch, len(keys))
		batch := keys[start:end]
		hashes, err := r.store.HGetAllMulti(ctx, batch)
		if err != nil {
			return nil, storeErr("hgetall multi", err)
		}
		for i, m := range hashes {
			if res, ok := parseHashFields(r.idFromKey(batch[i]), m); ok {
				out = append(out, res)
			}
		}
	}
	return out, nil
}

// FetchByTags returns up to limit resources whose tags intersect tags.
// Terms past the disjunction cap are dropped.
func (r *Repo) FetchByTags(ctx context.Context, tags []string, limit int) ([]domres.Resource, error) {
	tags = text.Tags(tags, r.tagCap)
	if len(tags) == 0 || limit <= 0 {
		return nil, nil
	}
	return r.search(ctx, tagQuery(tags), limit)
}

// FetchLimited returns up to limit resources in store order.
func (r *Repo) FetchLimited(ctx context.Context, limit int) ([]domres.Resource, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.search(ctx, "*", limit)
}

// Get returns one resource by ID.
func (r *Repo) Get(ctx context.Context, id string) (domres.Resource, error) {
	m, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return domres.Resource{}, storeErr("hgetall "+id, err)
	}
	res, ok := parseHashFields(id, m)
	if !ok {
		return domres.Resource{}, domain.ErrNotFound
	}
	return res, nil
}

// Upsert writes a resource, merging its tags with the stored ones.
// Returns true if the resource did not exist before.
func (r *Repo) Upsert(ctx context.Context, res *domres.Resource) (bool, error) {
	key := r.key(res.ID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, storeErr("check exists "+res.ID, err)
	}

	merged := *res
	if exists {
		current, err := r.store.HGetAll(ctx, key)
		if err != nil {
			return false, storeErr("hgetall "+res.ID, err)
		}
		merged.Tags = domres.MergeTags(splitTags(current[fieldTags]), res.Tags)
	} else {
		merged.Tags = domres.MergeTags(nil, res.Tags)
	}

	if err := r.store.HSet(ctx, key, buildHashFields(&merged, r.now())); err != nil {
		return false, storeErr("hset "+res.ID, err)
	}
	return !exists, nil
}

// Count returns the number of indexed resources.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.IndexName(), "*")
	if err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

func (r *Repo) search(ctx context.Context, query string, limit int) ([]domres.Resource, error) {
	result, err := r.store.SearchList(ctx, r.IndexName(), query, 0, limit, nil)
	if err != nil {
		return nil, storeErr("search", err)
	}
	if result == nil {
		return nil, nil
	}
	out := make([]domres.Resource, 0, len(result.Entries))
	for _, e := range result.Entries {
		if res, ok := parseHashFields(r.idFromKey(e.Key), e.Fields); ok {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *Repo) key(id string) string {
	return r.keyPrefix + id
}

func (r *Repo) idFromKey(key string) string {
	return strings.TrimPrefix(key, r.keyPrefix)
}

// storeErr classifies a store failure as a timeout or an unavailable store.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
