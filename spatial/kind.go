package spatial

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names an index backend.
type Kind uint8

const (
	KindList Kind = iota
	KindGrid
	KindQuadTree
	KindRTree
	KindHashGrid
)

// ErrUnknownKind is returned when a backend name or value is not recognised.
var ErrUnknownKind = errors.New("spatial: unknown index kind")

var kindNames = [...]string{
	KindList:     "list",
	KindGrid:     "grid",
	KindQuadTree: "quadtree",
	KindRTree:    "rtree",
	KindHashGrid: "hashgrid",
}

// Kinds lists every backend in declaration order.
func Kinds() []Kind {
	return []Kind{KindList, KindGrid, KindQuadTree, KindRTree, KindHashGrid}
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a backend name to a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Build creates an index of the given kind. capacity and bucketSize are
// interpreted per backend: the list ignores both, grids use bucketSize as the
// cell side, the quadtree uses both, the R-tree uses capacity as node fan-out.
func Build[T any](kind Kind, bounds Bounds, capacity int, bucketSize float64) (Index[T], error) {
	switch kind {
	case KindList:
		return NewList[T](bounds), nil
	case KindGrid:
		return NewGrid[T](bounds, bucketSize), nil
	case KindQuadTree:
		return NewQuadTree[T](bounds, capacity, bucketSize), nil
	case KindRTree:
		return NewRTree[T](bounds, capacity), nil
	case KindHashGrid:
		return NewHashGrid[T](bounds, bucketSize), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
}
