package server

import (
	"sync"

	"github.com/google/uuid"
)

// ── Asset Manager ──

// asset is one uploaded source photo, kept so the original bytes can be
// served back and re-selected.
type asset struct {
	ID   string
	Name string
	Data []byte
	Mime string
}

type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset
	order  []string
	limit  int
}

// newAssetManager keeps at most limit uploads; the oldest is evicted first.
func newAssetManager(limit int) *assetManager {
	return &assetManager{assets: make(map[string]*asset), limit: max(limit, 1)}
}

func (am *assetManager) add(name string, data []byte, mimeType string) *asset {
	a := &asset{ID: uuid.NewString(), Name: name, Data: data, Mime: mimeType}
	am.mu.Lock()
	defer am.mu.Unlock()
	am.assets[a.ID] = a
	am.order = append(am.order, a.ID)
	for len(am.order) > am.limit {
		delete(am.assets, am.order[0])
		am.order = am.order[1:]
	}
	return a
}

func (am *assetManager) get(id string) (*asset, bool) {
	am.mu.RLock()
	a, ok := am.assets[id]
	am.mu.RUnlock()
	return a, ok
}

func (am *assetManager) listAll() []map[string]any {
	am.mu.RLock()
	defer am.mu.RUnlock()
	result := make([]map[string]any, 0, len(am.order))
	for _, id := range am.order {
		a := am.assets[id]
		result = append(result, map[string]any{
			"id":   id,
			"name": a.Name,
			"mime": a.Mime,
			"size": len(a.Data),
		})
	}
	return result
}
