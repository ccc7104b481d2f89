package terrain

import "testing"

func TestTileIDRoundTrip(t *testing.T) {
	seen := make(map[ID]TileCoord)
	for ix := -40; ix <= 40; ix++ {
		for iz := -40; iz <= 40; iz++ {
			c := CoordFromIndex(ix, iz)
			if !c.Valid() {
				t.Fatalf("coordinate for (%d,%d) not canonical: %+v", ix, iz, c)
			}
			gx, gz := c.Index()
			if gx != ix || gz != iz {
				t.Fatalf("index round trip (%d,%d) -> %v -> (%d,%d)", ix, iz, c, gx, gz)
			}

			id := c.ID()
			if back := id.Coord(); back != c {
				t.Fatalf("id round trip %v -> %d -> %v", c, id, back)
			}
			if prev, ok := seen[id]; ok {
				t.Fatalf("id %d shared by %v and %v", id, prev, c)
			}
			seen[id] = c
		}
	}
}

func TestTileIDLargeValues(t *testing.T) {
	for _, c := range []TileCoord{
		{X: 1 << 20, I: 1, Z: 3, N: -1},
		{X: 0, I: -1, Z: 1<<20 + 7, N: 1},
		{X: 123456, I: -1, Z: 654321, N: -1},
	} {
		if back := c.ID().Coord(); back != c {
			t.Errorf("id round trip %v -> %v", c, back)
		}
	}
}

func TestCoordOfQuadrants(t *testing.T) {
	cases := []struct {
		x, z float32
		want TileCoord
	}{
		{0, 0, TileCoord{X: 0, I: 1, Z: 0, N: 1}},
		{3.9, 0.1, TileCoord{X: 0, I: 1, Z: 0, N: 1}},
		{4, 0, TileCoord{X: 1, I: 1, Z: 0, N: 1}},
		{-0.5, 0, TileCoord{X: 0, I: -1, Z: 0, N: 1}},
		{-4, -4, TileCoord{X: 0, I: -1, Z: 0, N: -1}},
		{-4.01, 9, TileCoord{X: 1, I: -1, Z: 2, N: 1}},
	}
	for _, tc := range cases {
		if got := CoordOf(tc.x, tc.z, 4, 4); got != tc.want {
			t.Errorf("CoordOf(%v,%v) = %v, want %v", tc.x, tc.z, got, tc.want)
		}
	}
}

func TestKeyParse(t *testing.T) {
	c := TileCoord{X: 3, I: -1, Z: 0, N: 1}
	if key := c.Key(); key != "x3i-1z0n1" {
		t.Fatalf("unexpected key %q", key)
	}
	back, err := ParseKey(c.Key())
	if err != nil || back != c {
		t.Errorf("ParseKey(%q) = %v, %v", c.Key(), back, err)
	}

	for _, bad := range []string{"", "3i1z0n1", "x3z0n1", "x3i2z0n1", "x-3i1z0n1", "x3i1z0n"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) should fail", bad)
		}
	}
}
