package terrain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TileCoord addresses one tile relative to the quadrant it lies in.
// X and Z are magnitudes (always >= 0); I and N carry the sign of the
// x and z axis respectively and are either -1 or 1.
type TileCoord struct {
	X int
	I int
	Z int
	N int
}

// ID is the identity of a tile. Two tiles are the same tile iff their IDs match.
type ID uint64

// CoordFromIndex folds signed grid indices into a quadrant-relative coordinate.
// Index -1 is the first tile left of the origin and maps to {X: 0, I: -1}.
func CoordFromIndex(ix, iz int) TileCoord {
	c := TileCoord{X: ix, I: 1, Z: iz, N: 1}
	if ix < 0 {
		c.X = -ix - 1
		c.I = -1
	}
	if iz < 0 {
		c.Z = -iz - 1
		c.N = -1
	}
	return c
}

// CoordOf returns the coordinate of the tile whose footprint contains the
// world point (worldX, worldZ). Footprints are half open: [x0, x0+tileW).
func CoordOf(worldX, worldZ, tileW, tileH float32) TileCoord {
	ix := int(math.Floor(float64(worldX / tileW)))
	iz := int(math.Floor(float64(worldZ / tileH)))
	return CoordFromIndex(ix, iz)
}

// Index unfolds the coordinate back into signed grid indices.
func (c TileCoord) Index() (ix, iz int) {
	ix = c.X*c.I + min(0, c.I)
	iz = c.Z*c.N + min(0, c.N)
	return ix, iz
}

// Valid reports whether the coordinate is in canonical form.
func (c TileCoord) Valid() bool {
	return c.X >= 0 && c.Z >= 0 && (c.I == 1 || c.I == -1) && (c.N == 1 || c.N == -1)
}

// ID computes the tile identity with a Cantor pairing over both signed
// indices, each recoded so that negatives map to odd naturals.
func (c TileCoord) ID() ID {
	ix, iz := c.Index()
	a := foldSigned(ix)
	b := foldSigned(iz)
	return ID((a+b)*(a+b+1)/2 + b)
}

// Coord inverts ID.
func (id ID) Coord() TileCoord {
	z := uint64(id)
	w := uint64((math.Sqrt(8*float64(z)+1) - 1) / 2)
	// float rounding can be off by one for large ids
	for w*(w+1)/2 > z {
		w--
	}
	for (w+1)*(w+2)/2 <= z {
		w++
	}
	b := z - w*(w+1)/2
	a := w - b
	return CoordFromIndex(unfoldSigned(a), unfoldSigned(b))
}

// Key renders the coordinate the way tile sub-documents are named on disk,
// e.g. "x3i-1z0n1".
func (c TileCoord) Key() string {
	return "x" + strconv.Itoa(c.X) + "i" + strconv.Itoa(c.I) + "z" + strconv.Itoa(c.Z) + "n" + strconv.Itoa(c.N)
}

func (c TileCoord) String() string {
	return c.Key()
}

// ParseKey reads a coordinate produced by Key.
func ParseKey(key string) (TileCoord, error) {
	var c TileCoord
	if !strings.HasPrefix(key, "x") {
		return c, fmt.Errorf("tile key %q: missing x", key)
	}
	rest := key[1:]
	parts := make([]int, 0, 4)
	for _, sep := range []string{"i", "z", "n", ""} {
		var field string
		if sep == "" {
			field = rest
		} else {
			idx := strings.Index(rest, sep)
			if idx < 0 {
				return c, fmt.Errorf("tile key %q: missing %s", key, sep)
			}
			field, rest = rest[:idx], rest[idx+1:]
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return c, fmt.Errorf("tile key %q: %w", key, err)
		}
		parts = append(parts, v)
	}
	c = TileCoord{X: parts[0], I: parts[1], Z: parts[2], N: parts[3]}
	if !c.Valid() {
		return c, fmt.Errorf("tile key %q: not a canonical coordinate", key)
	}
	return c, nil
}

func foldSigned(v int) uint64 {
	if v < 0 {
		return uint64(-2*v - 1)
	}
	return uint64(2 * v)
}

func unfoldSigned(v uint64) int {
	if v%2 == 1 {
		return -int((v + 1) / 2)
	}
	return int(v / 2)
}
