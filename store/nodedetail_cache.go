package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Abraxas-365/relay/engine"
)

// NodeDetailCache envuelve un NodeDetailRepository con una caché LRU en
// memoria. El registro de tipos de nodo se lee en cada evento entrante del
// Node Walker y cambia casi nunca, así que una caché pequeña elimina el
// round-trip a Postgres del camino caliente.
type NodeDetailCache struct {
	inner    engine.NodeDetailRepository
	byType   *lru.Cache[engine.NodeType, engine.NodeDetail]
	byCat    *lru.Cache[engine.NodeCategory, []engine.NodeDetail]
	all      *lru.Cache[string, []engine.NodeDetail]
}

var _ engine.NodeDetailRepository = (*NodeDetailCache)(nil)

const nodeDetailAllKey = "all"

func NewNodeDetailCache(inner engine.NodeDetailRepository, size int) (*NodeDetailCache, error) {
	byType, err := lru.New[engine.NodeType, engine.NodeDetail](size)
	if err != nil {
		return nil, err
	}
	byCat, err := lru.New[engine.NodeCategory, []engine.NodeDetail](size)
	if err != nil {
		return nil, err
	}
	all, err := lru.New[string, []engine.NodeDetail](1)
	if err != nil {
		return nil, err
	}
	return &NodeDetailCache{inner: inner, byType: byType, byCat: byCat, all: all}, nil
}

func (c *NodeDetailCache) FindByType(ctx context.Context, nodeType engine.NodeType) (*engine.NodeDetail, error) {
	if nd, ok := c.byType.Get(nodeType); ok {
		return &nd, nil
	}
	nd, err := c.inner.FindByType(ctx, nodeType)
	if err != nil {
		return nil, err
	}
	c.byType.Add(nodeType, *nd)
	return nd, nil
}

func (c *NodeDetailCache) List(ctx context.Context) ([]engine.NodeDetail, error) {
	if all, ok := c.all.Get(nodeDetailAllKey); ok {
		return all, nil
	}
	all, err := c.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	c.all.Add(nodeDetailAllKey, all)
	return all, nil
}

func (c *NodeDetailCache) ListByCategory(ctx context.Context, category engine.NodeCategory) ([]engine.NodeDetail, error) {
	if nds, ok := c.byCat.Get(category); ok {
		return nds, nil
	}
	nds, err := c.inner.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	c.byCat.Add(category, nds)
	return nds, nil
}

// Upsert escribe a través de la caché e invalida las entradas afectadas;
// es una operación administrativa poco frecuente, no parte del camino caliente.
func (c *NodeDetailCache) Upsert(ctx context.Context, nd engine.NodeDetail) error {
	if err := c.inner.Upsert(ctx, nd); err != nil {
		return err
	}
	c.byType.Remove(nd.NodeType)
	c.byCat.Remove(nd.Category)
	c.all.Remove(nodeDetailAllKey)
	return nil
}
