package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/nearfield/components"
	"github.com/pthm-cable/nearfield/spatial"
)

// FrameItem is one particle as it was inserted into the index this frame.
type FrameItem struct {
	Entity ecs.Entity
	ID     uint32
	X, Y   float64
}

// IndexSystem rebuilds the spatial index from particle positions.
// The index is cleared and refilled every frame; nothing is moved in place.
type IndexSystem struct {
	filter ecs.Filter2[components.Position, components.Particle]
	index  spatial.Index[ecs.Entity]
	frame  []FrameItem
}

// NewIndexSystem creates an index system that fills index.
func NewIndexSystem(w *ecs.World, index spatial.Index[ecs.Entity]) *IndexSystem {
	return &IndexSystem{
		filter: *ecs.NewFilter2[components.Position, components.Particle](w),
		index:  index,
		frame:  make([]FrameItem, 0, 512),
	}
}

// Rebuild clears the index and adds every particle, parked sentinels
// included. Returns the number of items added.
func (s *IndexSystem) Rebuild() int {
	s.index.Clear()
	s.frame = s.frame[:0]

	query := s.filter.Query()
	for query.Next() {
		pos, p := query.Get()
		e := query.Entity()
		s.index.Add(pos.X, pos.Y, e)
		s.frame = append(s.frame, FrameItem{Entity: e, ID: p.ID, X: pos.X, Y: pos.Y})
	}
	return len(s.frame)
}

// Index returns the index being rebuilt.
func (s *IndexSystem) Index() spatial.Index[ecs.Entity] {
	return s.index
}

// Frame returns the items added by the last Rebuild, in insertion order.
// The slice is reused by the next Rebuild.
func (s *IndexSystem) Frame() []FrameItem {
	return s.frame
}
