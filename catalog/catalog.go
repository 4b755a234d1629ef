package catalog

import (
	"context"
	"sync"

	"github.com/ReneKroon/ttlcache"
	"go.uber.org/zap"

	"github.com/openiap/storebridge/billing"
)

// Catalog resolves SKUs to product descriptors through the native layer and
// caches them by (id, type). Entries are replaced only by an explicit
// re-fetch, never by time; prices rarely change within a session, so
// staleness is the caller's call.
type Catalog struct {
	log    *zap.Logger
	native billing.Native

	mu       sync.RWMutex
	products *ttlcache.Cache
}

func New(log *zap.Logger, native billing.Native) *Catalog {
	return &Catalog{
		log:      log,
		native:   native,
		products: ttlcache.NewCache(),
	}
}

// FetchProducts queries the native catalog once for the given SKUs. A SKU
// absent from the result means "not found/not available" for that entry only;
// a subset is returned without error. When a product exposes multiple offers,
// the full offer list is returned; no "best" offer is ever chosen here.
func (c *Catalog) FetchProducts(ctx context.Context, skus []string, typ billing.ProductType) ([]*billing.Product, error) {
	products, err := c.native.QueryProducts(ctx, skus, typ)
	if err != nil {
		return nil, err
	}

	cache := c.cache()
	for _, product := range products {
		cache.Set(cacheKey(product.ID, typ), product)
	}

	if len(products) < len(skus) {
		c.log.Debug("Product query returned a subset",
			zap.Int("requested", len(skus)),
			zap.Int("resolved", len(products)),
		)
	}

	return products, nil
}

// Lookup returns the cached descriptor for a product resolved earlier in
// this session.
func (c *Catalog) Lookup(id string, typ billing.ProductType) (*billing.Product, bool) {
	cached, ok := c.cache().Get(cacheKey(id, typ))
	if !ok {
		return nil, false
	}
	return cached.(*billing.Product), true
}

// Reset drops all cached descriptors. Called on session teardown.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.products = ttlcache.NewCache()
	c.mu.Unlock()
}

func (c *Catalog) cache() *ttlcache.Cache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.products
}

func cacheKey(id string, typ billing.ProductType) string {
	return id + "|" + typ.String()
}
