package segment

import (
	"sync"

	M "custseg/model"
)

// Registry holds the model used for serving. Loading a model is the only
// write and is serialised against predictions.
type Registry struct {
	mu       sync.RWMutex
	model    *Model
	manifest Manifest
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Set installs a model, replacing the current one.
func (r *Registry) Set(model *Model, manifest Manifest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.model = model
	r.manifest = manifest
}

// Load installs the model persisted in store. On failure the current model is kept.
func (r *Registry) Load(store *Store) (Manifest, error) {
	model, manifest, err := store.Load()
	if err != nil {
		return Manifest{}, err
	}
	r.Set(model, manifest)
	return manifest, nil
}

// Model returns the installed model or ErrModelNotLoaded.
func (r *Registry) Model() (*Model, Manifest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.model.Trained() {
		return nil, Manifest{}, M.ErrModelNotLoaded
	}
	return r.model, r.manifest, nil
}

// Predict labels a copy of the batch with the installed model.
func (r *Registry) Predict(customers []M.Customer) ([]M.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.model.Trained() {
		return nil, M.ErrModelNotLoaded
	}
	return r.model.Predict(customers), nil
}
