package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pthm-cable/nearfield/spatial"
	"github.com/pthm-cable/nearfield/systems"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 2

// Snapshot encodings, also used as file extensions.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Snapshot holds one indexed frame so a query can be replayed offline.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`
	Tick    int32 `json:"tick"`

	Kind       spatial.Kind `json:"kind"`
	Bounds     BoundsJSON   `json:"bounds"`
	Capacity   int          `json:"capacity"`
	BucketSize float64      `json:"bucket_size"`

	// Query parameters in force when the frame was captured
	Radius   float64 `json:"radius"`
	MaxCount int     `json:"max_count"`

	Items []ItemState `json:"items"`

	Mismatches []systems.Mismatch `json:"mismatches,omitempty"`
}

// BoundsJSON is the JSON form of spatial.Bounds.
type BoundsJSON struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ItemState is one indexed particle.
type ItemState struct {
	ID uint32  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// NewSnapshot captures frame as it was inserted into an index.
func NewSnapshot(seed int64, tick int32, kind spatial.Kind, bounds spatial.Bounds, capacity int, bucketSize float64, frame []systems.FrameItem) *Snapshot {
	s := &Snapshot{
		Version:    SnapshotVersion,
		RNGSeed:    seed,
		Tick:       tick,
		Kind:       kind,
		Bounds:     BoundsJSON{X: bounds.X, Y: bounds.Y, Width: bounds.Width, Height: bounds.Height},
		Capacity:   capacity,
		BucketSize: bucketSize,
		Items:      make([]ItemState, len(frame)),
	}
	for i, it := range frame {
		s.Items[i] = ItemState{ID: it.ID, X: it.X, Y: it.Y}
	}
	return s
}

// SpatialBounds returns the snapshot bounds.
func (s *Snapshot) SpatialBounds() spatial.Bounds {
	return spatial.NewBounds(s.Bounds.X, s.Bounds.Y, s.Bounds.Width, s.Bounds.Height)
}

// SaveSnapshot writes a snapshot to disk as JSON.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	return SaveSnapshotAs(snapshot, dir, FormatJSON)
}

// SaveSnapshotAs writes a snapshot in the given format (FormatJSON or FormatMsgpack).
func SaveSnapshotAs(snapshot *Snapshot, dir, format string) (string, error) {
	var data []byte
	var err error
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(snapshot, "", "  ")
	case FormatMsgpack:
		data, err = marshalMsgpack(snapshot)
	default:
		return "", fmt.Errorf("unknown snapshot format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	name := fmt.Sprintf("snapshot_%d_%s.%s", snapshot.Tick, snapshot.Kind, format)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk. The encoding follows the file
// extension; anything other than .msgpack is read as JSON.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if strings.EqualFold(filepath.Ext(path), "."+FormatMsgpack) {
		err = unmarshalMsgpack(data, &snapshot)
	} else {
		err = json.Unmarshal(data, &snapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}

// msgpack reads the json tags so both encodings use the same keys.
func marshalMsgpack(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalMsgpack(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
