package detection

import "testing"

// fillBlock sets the rectangle [x0,x0+w) x [y0,y0+h) in a mask.
func fillBlock(m *Mask, x0, y0, w, h int) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			m.Set(x, y, true)
		}
	}
}

func TestMaskSetAt(t *testing.T) {
	m := NewMask(10, 10)

	if m.At(3, 4) {
		t.Error("new mask should be all off")
	}

	m.Set(3, 4, true)
	if !m.At(3, 4) {
		t.Error("Set(3,4) not visible through At")
	}

	m.Set(3, 4, false)
	if m.At(3, 4) {
		t.Error("Set(3,4,false) did not clear the pixel")
	}
}

func TestMaskOutOfBounds(t *testing.T) {
	m := NewMask(10, 10)

	// Out-of-bounds writes are dropped, reads come back off.
	m.Set(-1, 0, true)
	m.Set(0, -1, true)
	m.Set(10, 0, true)
	m.Set(0, 10, true)

	if m.Count() != 0 {
		t.Errorf("out-of-bounds Set leaked into the mask: count %d", m.Count())
	}
	if m.At(-1, 0) || m.At(0, -1) || m.At(10, 0) || m.At(0, 10) {
		t.Error("out-of-bounds At should report off")
	}
}

func TestMaskCount(t *testing.T) {
	m := NewMask(8, 8)
	fillBlock(m, 2, 2, 3, 3)
	if m.Count() != 9 {
		t.Errorf("Count: got %d, want 9", m.Count())
	}
}

func TestMaskMedian_RemovesSpeckle(t *testing.T) {
	m := NewMask(20, 20)
	m.Set(10, 10, true)

	out := m.Median(2)
	if out.Count() != 0 {
		t.Errorf("isolated pixel should not survive the majority filter, count %d", out.Count())
	}
}

func TestMaskMedian_KeepsBlobCore(t *testing.T) {
	m := NewMask(20, 20)
	fillBlock(m, 5, 5, 9, 9)

	out := m.Median(2)
	if !out.At(9, 9) {
		t.Error("blob center should survive the majority filter")
	}
}

func TestMaskDilate_GrowsPixel(t *testing.T) {
	m := NewMask(11, 11)
	m.Set(5, 5, true)

	out := m.Dilate(1)
	if out.Count() != 9 {
		t.Errorf("dilated single pixel: got %d set pixels, want 9", out.Count())
	}
	if !out.At(4, 4) || !out.At(6, 6) {
		t.Error("dilation did not reach the diagonal neighbors")
	}
}

func TestMaskErode_RemovesPixel(t *testing.T) {
	m := NewMask(11, 11)
	m.Set(5, 5, true)

	out := m.Erode(1)
	if out.Count() != 0 {
		t.Errorf("eroded single pixel: got %d set pixels, want 0", out.Count())
	}
}

func TestMaskErode_FullMaskStable(t *testing.T) {
	// Border pixels treat the outside as set, so a full mask stays full.
	m := NewMask(6, 6)
	fillBlock(m, 0, 0, 6, 6)

	out := m.Erode(1)
	if out.Count() != 36 {
		t.Errorf("full mask after erosion: got %d set pixels, want 36", out.Count())
	}
}

func TestMaskOpen_DropsSpeckleKeepsBlob(t *testing.T) {
	m := NewMask(30, 30)
	m.Set(2, 2, true)          // speckle
	fillBlock(m, 10, 10, 9, 9) // blob

	out := m.Open(1, 1)
	if out.At(2, 2) {
		t.Error("opening should remove the isolated pixel")
	}
	if out.Count() != 81 {
		t.Errorf("opening changed the blob size: got %d set pixels, want 81", out.Count())
	}
}

func TestMaskClose_FillsHole(t *testing.T) {
	m := NewMask(20, 20)
	fillBlock(m, 5, 5, 7, 7)
	m.Set(8, 8, false) // hole in the middle

	out := m.Close(1, 1)
	if !out.At(8, 8) {
		t.Error("closing should fill the interior hole")
	}
	if out.Count() != 49 {
		t.Errorf("closed blob: got %d set pixels, want 49", out.Count())
	}
}

func TestMaskOperationsDoNotMutateReceiver(t *testing.T) {
	m := NewMask(15, 15)
	fillBlock(m, 4, 4, 5, 5)
	before := m.Count()

	m.Median(2)
	m.Erode(1)
	m.Dilate(1)
	m.Open(1, 1)
	m.Close(1, 1)

	if m.Count() != before {
		t.Errorf("mask operations mutated the receiver: count %d, want %d", m.Count(), before)
	}
}
