// internal/farm/store.go
package farm

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/protanki-tools/farmbot/internal/models"
)

// Store holds every active farm in memory, keyed by farm id. It is the single
// source of truth for session state; entries live from Create until End and a
// process restart loses everything, which is acceptable for this domain.
type Store struct {
	mu    sync.Mutex
	farms map[string]*models.Farm
	log   *logrus.Logger
}

// NewStore initializes an empty Store.
func NewStore(log *logrus.Logger) *Store {
	return &Store{
		farms: make(map[string]*models.Farm),
		log:   log,
	}
}

// Add registers a new farm. An id collision is logged and ignored rather than
// overwriting the existing farm.
func (s *Store) Add(f *models.Farm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.farms[f.ID]; exists {
		s.log.WithField("farm_id", f.ID).Warn("store: farm already exists, ignoring add")
		return
	}
	s.farms[f.ID] = f
	s.log.WithFields(logrus.Fields{"farm_id": f.ID, "title": f.Title}).Debug("store: farm added")
}

// Get retrieves a farm by id.
func (s *Store) Get(id string) (*models.Farm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.farms[id]
	return f, ok
}

// Delete removes a farm by id. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.farms[id]; exists {
		delete(s.farms, id)
		s.log.WithField("farm_id", id).Debug("store: farm deleted")
	}
}

// List returns the active farms as a copied slice, safe to iterate while the
// store keeps changing.
func (s *Store) List() []*models.Farm {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Farm, 0, len(s.farms))
	for _, f := range s.farms {
		out = append(out, f)
	}
	return out
}

// Count returns the number of active farms.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.farms)
}
