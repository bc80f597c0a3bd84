package volume

import (
	"errors"
	"testing"
)

// TestNewVolume verifies that a new volume is zero-filled with the right extents
func TestNewVolume(t *testing.T) {
	v := New(4, 3, 2)

	if v.Width != 4 || v.Height != 3 || v.Depth != 2 {
		t.Errorf("Expected extents 4x3x2, got %dx%dx%d", v.Width, v.Height, v.Depth)
	}

	if len(v.Data) != 24 {
		t.Errorf("Expected data length 24, got %d", len(v.Data))
	}

	for i, val := range v.Data {
		if val != 0 {
			t.Fatalf("Expected zero-filled volume, found %f at index %d", val, i)
		}
	}
}

// TestVolumeIndexing verifies the row-major indexing convention
func TestVolumeIndexing(t *testing.T) {
	v := New(4, 3, 2)

	testCases := []struct {
		x, y, z  int
		expected int
	}{
		{0, 0, 0, 0},
		{3, 0, 0, 3},
		{0, 1, 0, 4},
		{0, 0, 1, 12},
		{3, 2, 1, 23},
	}

	for _, tc := range testCases {
		if idx := v.Idx(tc.x, tc.y, tc.z); idx != tc.expected {
			t.Errorf("Idx(%d,%d,%d): expected %d, got %d", tc.x, tc.y, tc.z, tc.expected, idx)
		}
	}

	v.Set(2, 1, 1, 0.5)
	if got := v.At(2, 1, 1); got != 0.5 {
		t.Errorf("At(2,1,1): expected 0.5, got %f", got)
	}
	if v.Data[v.Idx(2, 1, 1)] != 0.5 {
		t.Error("Set did not write to the expected flat index")
	}
}

// TestVolumeValidate verifies the input validation cases
func TestVolumeValidate(t *testing.T) {
	testCases := []struct {
		name    string
		volume  *Volume
		wantErr bool
	}{
		{"valid", New(2, 2, 2), false},
		{"nil", nil, true},
		{"zero width", &Volume{Data: []float64{}, Width: 0, Height: 2, Depth: 2}, true},
		{"negative depth", &Volume{Data: []float64{}, Width: 2, Height: 2, Depth: -1}, true},
		{"length mismatch", &Volume{Data: make([]float64, 7), Width: 2, Height: 2, Depth: 2}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.volume.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("Expected an error, got nil")
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

// TestSameShape verifies shape comparison
func TestSameShape(t *testing.T) {
	a := New(4, 3, 2)
	b := New(4, 3, 2)
	c := New(4, 3, 3)

	if !SameShape(a, b) {
		t.Error("Expected equal shapes to compare true")
	}
	if SameShape(a, c) {
		t.Error("Expected different depths to compare false")
	}
}

// TestClone verifies that the copy is deep
func TestClone(t *testing.T) {
	v := New(2, 2, 2)
	v.Set(1, 1, 1, 0.7)

	clone := v.Clone()
	clone.Set(1, 1, 1, 0.2)

	if v.At(1, 1, 1) != 0.7 {
		t.Error("Mutating the clone changed the original")
	}
}

// TestMaskCountAndFloat verifies mask counting and the 0/1 numeric view
func TestMaskCountAndFloat(t *testing.T) {
	m := NewMask(3, 3, 3)
	m.Set(0, 0, 0, true)
	m.Set(2, 2, 2, true)
	m.Set(1, 1, 1, true)

	if got := m.Count(); got != 3 {
		t.Errorf("Expected count 3, got %d", got)
	}

	f := m.Float()
	if f.Width != 3 || f.Height != 3 || f.Depth != 3 {
		t.Errorf("Float view has wrong extents %dx%dx%d", f.Width, f.Height, f.Depth)
	}

	var sum float64
	for _, v := range f.Data {
		if v != 0 && v != 1 {
			t.Fatalf("Float view must be 0/1 valued, found %f", v)
		}
		sum += v
	}
	if sum != 3 {
		t.Errorf("Expected float view sum 3, got %f", sum)
	}
}

// TestMaskAnd verifies the element-wise AND
func TestMaskAnd(t *testing.T) {
	a := NewMask(2, 2, 1)
	b := NewMask(2, 2, 1)
	a.Set(0, 0, 0, true)
	a.Set(1, 0, 0, true)
	b.Set(1, 0, 0, true)
	b.Set(0, 1, 0, true)

	out := And(a, b)
	if out.Count() != 1 {
		t.Errorf("Expected 1 overlapping voxel, got %d", out.Count())
	}
	if !out.At(1, 0, 0) {
		t.Error("Expected overlap at (1,0,0)")
	}
}

// TestStack verifies multichannel construction and its validation
func TestStack(t *testing.T) {
	a := New(4, 4, 4)
	b := New(4, 4, 4)

	mv, err := Stack(a, b)
	if err != nil {
		t.Fatalf("Stack failed on equal shapes: %v", err)
	}
	if mv.NumChannels() != 2 {
		t.Errorf("Expected 2 channels, got %d", mv.NumChannels())
	}
	if mv.Channels[0] != a || mv.Channels[1] != b {
		t.Error("Channel order was not preserved")
	}

	if _, err := Stack(a, New(4, 4, 5)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for shape mismatch, got %v", err)
	}

	if _, err := Stack(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty stack, got %v", err)
	}
}
