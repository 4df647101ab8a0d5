// Package rulestore composes the sources tariff rules are served from: the
// PostgreSQL nomenclature store, the OpenSearch heading index, and a Redis
// read-through layer in front of both.
package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// NewRedisClient builds a go-redis client from cfg.
func NewRedisClient(cfg config.RedisConfig) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Cached is a read-through Redis decorator over another tariff.RuleStore.
// Nomenclature data changes on a yearly cycle, so a generous TTL is safe.
// The cache fails open: any Redis error falls back to the inner store, and a
// failed write-back is only logged.  Not-found results are cached as negative
// entries so absent chapters do not hammer the database.
type Cached struct {
	inner   tariff.RuleStore
	rdb     redis.UniversalClient
	prefix  string
	ttl     time.Duration
	logger  logging.Logger
	lookups func(hit bool)
}

// negative is the sentinel stored for a not-found lookup.
const negative = "\x00nf"

// NewCached wraps inner with a Redis read-through layer.
func NewCached(inner tariff.RuleStore, rdb redis.UniversalClient, cfg config.RedisConfig, log logging.Logger) *Cached {
	return &Cached{
		inner:  inner,
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.DefaultTTL,
		logger: log,
	}
}

// InstrumentLookups registers a hit/miss callback, typically a Prometheus
// counter.  A corrupt or unreadable entry counts as a miss.
func (c *Cached) InstrumentLookups(f func(hit bool)) { c.lookups = f }

func (c *Cached) record(hit bool) {
	if c.lookups != nil {
		c.lookups(hit)
	}
}

func (c *Cached) key(kind, id string) string {
	return c.prefix + kind + ":" + id
}

// getThrough implements the read-through protocol for one key: cache hit,
// negative hit, or load-and-store.
func getThrough[T any](ctx context.Context, c *Cached, key string, notFoundCode pkgerrors.ErrorCode,
	load func(context.Context) (*T, error)) (*T, error) {

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if raw == negative {
			c.record(true)
			return nil, pkgerrors.Newf(notFoundCode, "cached negative entry for %s", key)
		}
		var v T
		if jsonErr := json.Unmarshal([]byte(raw), &v); jsonErr == nil {
			c.record(true)
			return &v, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("rule cache read failed; falling back to store",
			logging.String("key", key), logging.Err(err))
	}
	c.record(false)

	v, err := load(ctx)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			c.writeBack(ctx, key, negative)
		}
		return nil, err
	}
	if data, jsonErr := json.Marshal(v); jsonErr == nil {
		c.writeBack(ctx, key, string(data))
	}
	return v, nil
}

func (c *Cached) writeBack(ctx context.Context, key, value string) {
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("rule cache write failed",
			logging.String("key", key), logging.Err(err))
	}
}

func (c *Cached) GetChapterNotes(ctx context.Context, chapter string) (*tariff.ChapterNotes, error) {
	return getThrough(ctx, c, c.key("notes", chapter), pkgerrors.ErrCodeChapterNotesNotFound,
		func(ctx context.Context) (*tariff.ChapterNotes, error) {
			return c.inner.GetChapterNotes(ctx, chapter)
		})
}

func (c *Cached) GetSectionData(ctx context.Context, section int) (*tariff.SectionData, error) {
	return getThrough(ctx, c, c.key("section", strconv.Itoa(section)), pkgerrors.ErrCodeSectionNotFound,
		func(ctx context.Context) (*tariff.SectionData, error) {
			return c.inner.GetSectionData(ctx, section)
		})
}

func (c *Cached) GetChapterSection(ctx context.Context, chapter string) (int, error) {
	key := c.key("chsec", chapter)
	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if id, convErr := strconv.Atoi(raw); convErr == nil {
			c.record(true)
			return id, nil
		}
		c.rdb.Del(ctx, key)
	}
	c.record(false)
	id, err := c.inner.GetChapterSection(ctx, chapter)
	if err != nil {
		return 0, err
	}
	c.writeBack(ctx, key, strconv.Itoa(id))
	return id, nil
}

func (c *Cached) GetHeadingDocs(ctx context.Context, heading string) ([]tariff.HeadingDoc, error) {
	type docList struct {
		Docs []tariff.HeadingDoc `json:"docs"`
	}
	list, err := getThrough(ctx, c, c.key("heading", heading), pkgerrors.ErrCodeHeadingNotFound,
		func(ctx context.Context) (*docList, error) {
			docs, err := c.inner.GetHeadingDocs(ctx, heading)
			if err != nil {
				return nil, err
			}
			return &docList{Docs: docs}, nil
		})
	if err != nil {
		return nil, err
	}
	return list.Docs, nil
}

// Invalidate drops the cached entries for one chapter, used after a
// nomenclature reimport.
func (c *Cached) Invalidate(ctx context.Context, chapter string) error {
	keys := []string{c.key("notes", chapter), c.key("chsec", chapter)}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeCacheError,
			fmt.Sprintf("failed to invalidate chapter %s", chapter))
	}
	return nil
}
