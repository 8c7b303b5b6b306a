package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"content-targeting-engine/internal/engine"
	"content-targeting-engine/internal/observability"
)

// recommendationMemo remembers recommendation results per snapshot version
// and request. A new snapshot changes every key, so stale entries just expire.
type recommendationMemo struct {
	c *gocache.Cache
}

func newRecommendationMemo(ttl time.Duration) *recommendationMemo {
	return &recommendationMemo{c: gocache.New(ttl, 2*ttl)}
}

func memoKey(version string, req recordRequest) (string, error) {
	// encoding/json sorts map keys, so equal records hash equally.
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return version + ":" + hex.EncodeToString(sum[:]), nil
}

func (m *recommendationMemo) get(key string) (engine.Recommendations, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		observability.RecommendationCache.WithLabelValues("miss").Inc()
		return engine.Recommendations{}, false
	}
	observability.RecommendationCache.WithLabelValues("hit").Inc()
	return v.(engine.Recommendations), true
}

func (m *recommendationMemo) set(key string, recs engine.Recommendations) {
	m.c.SetDefault(key, recs)
}
