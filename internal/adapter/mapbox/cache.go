package mapbox

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
	"github.com/jonboulle/clockwork"
)

// cacheTTL bounds how long a geocoding result is reused.
const cacheTTL = 6 * time.Hour

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache. Repeated SOS
// triggers for the same city or device position skip the API.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache[domain.GeocodingResult]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache[domain.GeocodingResult](maxEntries, cacheTTL, clockwork.NewRealClock()),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, name, region string) (domain.GeocodingResult, error) {
	key := fmt.Sprintf("fwd:%s|%s", strings.ToLower(strings.TrimSpace(name)), strings.ToLower(strings.TrimSpace(region)))
	if result, ok := c.lookup(key, "forward"); ok {
		return result, nil
	}
	result, err := c.inner.ForwardGeocode(ctx, name, region)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if result.FormattedAddress != "" {
		c.cache.put(key, result)
	}
	return result, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Four decimals is ~11 m, close enough to share a place label.
	key := fmt.Sprintf("rev:%.4f,%.4f", lat, lon)
	if result, ok := c.lookup(key, "reverse"); ok {
		return result, nil
	}
	result, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return result, err
	}
	if result.FormattedAddress != "" {
		c.cache.put(key, result)
	}
	return result, nil
}

func (c *CachedGeocoder) lookup(key, method string) (domain.GeocodingResult, bool) {
	result, ok := c.cache.get(key)
	if ok {
		c.metrics.GeocodeCache.WithLabelValues(method, "hit").Inc()
	} else {
		c.metrics.GeocodeCache.WithLabelValues(method, "miss").Inc()
	}
	return result, ok
}

// lruCache is a thread-safe LRU cache whose entries also expire after ttl.
type lruCache[V any] struct {
	mu    sync.Mutex
	max   int
	ttl   time.Duration
	clock clockwork.Clock
	order *list.List // front is most recently used
	items map[string]*list.Element
}

type lruItem[V any] struct {
	key     string
	value   V
	expires time.Time
}

func newLRUCache[V any](maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache[V] {
	return &lruCache[V]{
		max:   maxEntries,
		ttl:   ttl,
		clock: clock,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	item := el.Value.(*lruItem[V])
	if !c.clock.Now().Before(item.expires) {
		c.order.Remove(el)
		delete(c.items, key)
		return zero, false
	}
	c.order.MoveToFront(el)
	return item.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		item := el.Value.(*lruItem[V])
		item.value = value
		item.expires = expires
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&lruItem[V]{key: key, value: value, expires: expires})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruItem[V]).key)
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
