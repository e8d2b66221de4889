package curve

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Centerline is a registered curve-like scene object.
type Centerline struct {
	ID       string
	Polyline *Polyline
	// Radius is the pipe radius for top/bottom sampling; zero for roads.
	Radius float64
}

// MemoryService resolves selections against centerlines held in memory.
// Several ids resolve to their polylines joined in selection order.
type MemoryService struct {
	mu    sync.RWMutex
	lines map[string]Centerline
}

// NewMemoryService creates an empty service.
func NewMemoryService() *MemoryService {
	return &MemoryService{lines: make(map[string]Centerline)}
}

// Add registers or replaces a centerline.
func (s *MemoryService) Add(c Centerline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[c.ID] = c
}

// IDs returns the registered object ids, sorted.
func (s *MemoryService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.lines))
	for id := range s.lines {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Resolve implements Service.
func (s *MemoryService) Resolve(ctx context.Context, objectIDs []string, mode SampleMode) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(objectIDs) == 0 {
		return nil, ErrNotResolved
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var joined *Polyline
	radius := 0.0
	for _, id := range objectIDs {
		c, ok := s.lines[id]
		if !ok {
			return nil, fmt.Errorf("object %q: %w", id, ErrNotResolved)
		}
		if c.Radius > radius {
			radius = c.Radius
		}
		if joined == nil {
			joined = c.Polyline
			continue
		}
		next, err := joined.Join(c.Polyline)
		if err != nil {
			return nil, fmt.Errorf("join %q: %w", id, err)
		}
		joined = next
	}

	ids := make([]string, len(objectIDs))
	copy(ids, objectIDs)

	var eval Evaluator = joined
	if mode != SampleCenter && radius > 0 {
		eval = Cylinder{Axis: joined, Radius: radius, Mode: mode}
	}
	return &Handle{ObjectIDs: ids, Bounds: joined.Bounds(), Evaluator: eval}, nil
}

// Centerline returns the registered centerline with id.
func (s *MemoryService) Centerline(id string) (Centerline, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.lines[id]
	return c, ok
}
