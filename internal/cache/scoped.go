/*-------------------------------------------------------------------------
 *
 * scoped.go
 *    Schema and result caches with user-scoped keys
 *
 * Caches schema introspection results and query results within a
 * bounded freshness window. Every key embeds the scoping user ID, so
 * one user's cached data can never answer another user's lookup.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/cache/scoped.go
 *
 *-------------------------------------------------------------------------
 */

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/neurondb/NeuronSupervisor/internal/config"
)

/* SchemaCache caches table schema lookups per user */
type SchemaCache struct {
	cache *TTLCache
}

/* NewSchemaCache creates a schema cache from configuration */
func NewSchemaCache(cfg config.CacheConfig) *SchemaCache {
	return &SchemaCache{
		cache: NewTTLCache("schema", cfg.FreshTTL, cfg.HardMaxAge, cfg.MaxSize),
	}
}

/* Get retrieves a cached schema for a user-scoped table lookup */
func (s *SchemaCache) Get(userID, tableName string) (interface{}, bool) {
	return s.cache.Get(scopedKey(userID, "schema", tableName))
}

/* Set stores a schema for a user-scoped table lookup */
func (s *SchemaCache) Set(userID, tableName string, schema interface{}) {
	s.cache.Set(scopedKey(userID, "schema", tableName), schema)
}

/* Invalidate drops a cached schema */
func (s *SchemaCache) Invalidate(userID, tableName string) {
	s.cache.Invalidate(scopedKey(userID, "schema", tableName))
}

/* InvalidateAll drops all cached schemas */
func (s *SchemaCache) InvalidateAll() {
	s.cache.InvalidateAll()
}

/* Size returns the number of cached schemas */
func (s *SchemaCache) Size() int {
	return s.cache.Size()
}

/* Underlying exposes the TTL cache for tests */
func (s *SchemaCache) Underlying() *TTLCache {
	return s.cache
}

/* ResultCache caches query results per user keyed by a query
 * fingerprint */
type ResultCache struct {
	cache *TTLCache
}

/* NewResultCache creates a result cache from configuration */
func NewResultCache(cfg config.CacheConfig) *ResultCache {
	return &ResultCache{
		cache: NewTTLCache("result", cfg.FreshTTL, cfg.HardMaxAge, cfg.MaxSize),
	}
}

/* Get retrieves a cached result for a user-scoped query fingerprint */
func (r *ResultCache) Get(userID string, query string, args map[string]interface{}) (interface{}, bool) {
	return r.cache.Get(scopedKey(userID, "result", fingerprint(query, args)))
}

/* Set stores a result under a user-scoped query fingerprint */
func (r *ResultCache) Set(userID string, query string, args map[string]interface{}, result interface{}) {
	r.cache.Set(scopedKey(userID, "result", fingerprint(query, args)), result)
}

/* Invalidate drops a cached result */
func (r *ResultCache) Invalidate(userID string, query string, args map[string]interface{}) {
	r.cache.Invalidate(scopedKey(userID, "result", fingerprint(query, args)))
}

/* InvalidateAll drops all cached results */
func (r *ResultCache) InvalidateAll() {
	r.cache.InvalidateAll()
}

/* Size returns the number of cached results */
func (r *ResultCache) Size() int {
	return r.cache.Size()
}

/* Underlying exposes the TTL cache for tests */
func (r *ResultCache) Underlying() *TTLCache {
	return r.cache
}

/* scopedKey builds a cache key that always embeds the scoping user */
func scopedKey(userID, kind, suffix string) string {
	hash := sha256.Sum256([]byte(userID + "\x00" + kind + "\x00" + suffix))
	return hex.EncodeToString(hash[:])
}

/* fingerprint hashes a query and its arguments into a stable key */
func fingerprint(query string, args map[string]interface{}) string {
	payload := map[string]interface{}{
		"query": query,
		"args":  args,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		/* Fallback to simple concatenation */
		return fmt.Sprintf("%s:%v", query, args)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
