package lattice

import (
	"errors"
	"math"
	"testing"
)

func testGlobal(l int) [][]float64 {
	g := make([][]float64, l)
	for i := range g {
		g[i] = make([]float64, l)
		for j := range g[i] {
			g[i][j] = float64(i*l + j)
		}
	}
	return g
}

func TestField_SetRejectsHalo(t *testing.T) {
	f, err := NewField(Band{Start: 0, End: 3}, 4)
	if err != nil {
		t.Fatal(err)
	}

	for _, lr := range []int{0, 4} {
		err := f.Set(lr, 0, 1.0)
		if !errors.Is(err, ErrInvalidAccess) {
			t.Errorf("Set(%d, 0): expected ErrInvalidAccess, got %v", lr, err)
		}
		var ae *AccessError
		if !errors.As(err, &ae) || ae.Row != lr {
			t.Errorf("Set(%d, 0): expected AccessError for row %d, got %v", lr, lr, err)
		}
	}

	if err := f.Set(2, 4, 1.0); !errors.Is(err, ErrInvalidAccess) {
		t.Errorf("column out of range: got %v", err)
	}
	if err := f.Set(3, 3, 1.5); err != nil {
		t.Errorf("owned write failed: %v", err)
	}
	if v, _ := f.Get(3, 3); v != 1.5 {
		t.Errorf("Get after Set = %v", v)
	}
}

func TestField_GetBounds(t *testing.T) {
	f, _ := NewField(Band{Start: 0, End: 2}, 3)

	if _, err := f.Get(0, 0); err != nil {
		t.Errorf("halo read failed: %v", err)
	}
	if _, err := f.Get(3, 2); err != nil {
		t.Errorf("bottom halo read failed: %v", err)
	}
	if _, err := f.Get(4, 0); !errors.Is(err, ErrInvalidAccess) {
		t.Errorf("read past strip: got %v", err)
	}
	if _, err := f.Get(1, -1); !errors.Is(err, ErrInvalidAccess) {
		t.Errorf("negative column: got %v", err)
	}
}

func TestField_AtPanics(t *testing.T) {
	f, _ := NewField(Band{Start: 0, End: 1}, 2)

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidAccess) {
			t.Errorf("expected AccessError panic, got %v", r)
		}
	}()
	f.At(5, 0)
}

func TestFromGlobal_WrapsHalos(t *testing.T) {
	g := testGlobal(4)

	top, err := FromGlobal(g, Band{Rank: 0, Start: 0, End: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := top.Halo(Top); got[0] != g[3][0] {
		t.Errorf("top halo of rank 0 = %v, want last global row", got)
	}
	if got := top.Halo(Bottom); got[1] != g[2][1] {
		t.Errorf("bottom halo of rank 0 = %v, want row 2", got)
	}

	bottom, _ := FromGlobal(g, Band{Rank: 1, Start: 2, End: 4})
	if got := bottom.Halo(Bottom); got[3] != g[0][3] {
		t.Errorf("bottom halo of last rank = %v, want row 0", got)
	}
	if got := bottom.Boundary(Top); got[0] != g[2][0] {
		t.Errorf("top boundary = %v, want row 2", got)
	}
}

func TestField_HaloIsCopy(t *testing.T) {
	f, _ := FromGlobal(testGlobal(3), Band{Start: 0, End: 3})

	h := f.Halo(Top)
	h[0] = -1
	if v, _ := f.Get(0, 0); v == -1 {
		t.Error("Halo returned a live view")
	}

	b := f.Boundary(Bottom)
	b[0] = -1
	if v, _ := f.Get(3, 0); v == -1 {
		t.Error("Boundary returned a live view")
	}

	if err := f.SetHalo(Top, []float64{1, 2}); !errors.Is(err, ErrInvalidAccess) {
		t.Errorf("short halo row accepted: %v", err)
	}
}

func TestField_Randomize(t *testing.T) {
	f, _ := NewField(Band{Start: 0, End: 8}, 8)
	f.Randomize(NewRNG(7, 0))

	for _, row := range f.Owned() {
		for _, v := range row {
			if v < 0 || v >= 2*math.Pi {
				t.Fatalf("angle %v outside [0, 2π)", v)
			}
		}
	}
	for _, v := range f.Halo(Top) {
		if v != 0 {
			t.Fatal("Randomize touched the halo")
		}
	}
}

func TestNewRNG_DistinctPerRank(t *testing.T) {
	a := NewRNG(42, 0)
	b := NewRNG(42, 1)
	c := NewRNG(42, 0)

	same := 0
	for i := 0; i < 16; i++ {
		x, y, z := a.Uint64(), b.Uint64(), c.Uint64()
		if x == y {
			same++
		}
		if x != z {
			t.Fatal("same seed and rank gave different streams")
		}
	}
	if same == 16 {
		t.Error("ranks 0 and 1 share a stream")
	}
}
