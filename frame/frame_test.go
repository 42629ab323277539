package frame_test

import (
	"testing"

	"github.com/ribeiro-lab/photond/frame"
)

func mkGradient(w, h int) frame.Frame {
	pix := make([]uint16, w*h)
	for i := range pix {
		pix[i] = uint16(i)
	}
	f, _ := frame.New(pix, w, h)
	return f
}

func TestNewRejectsShortBuffer(t *testing.T) {
	_, err := frame.New(make([]uint16, 10), 4, 4)
	if err == nil {
		t.Error("expected error for buffer shorter than WxH")
	}
}

func TestCenteredROI(t *testing.T) {
	// 4x4 gradient, centered 2x2 window starts at (1,1)
	f := mkGradient(4, 4)
	roi, err := f.CenteredROI(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	expected := []uint16{5, 6, 9, 10}
	for i, v := range expected {
		if roi.Pix[i] != v {
			t.Errorf("pixel %d: expected %d got %d", i, v, roi.Pix[i])
		}
	}
}

func TestCenteredROIFullFrame(t *testing.T) {
	f := mkGradient(3, 3)
	roi, err := f.CenteredROI(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range f.Pix {
		if roi.Pix[i] != f.Pix[i] {
			t.Fatalf("full-frame ROI differs at %d", i)
		}
	}
}

func TestCenteredROITooLarge(t *testing.T) {
	f := mkGradient(4, 4)
	_, err := f.CenteredROI(5, 2)
	if err == nil {
		t.Error("expected error for ROI wider than frame")
	}
}

func TestROIIsACopy(t *testing.T) {
	f := mkGradient(4, 4)
	roi, _ := f.CenteredROI(2, 2)
	f.Pix[5] = 9999
	if roi.Pix[0] == 9999 {
		t.Error("ROI aliases the parent frame")
	}
}

func TestMean(t *testing.T) {
	f, _ := frame.New([]uint16{1, 2, 3, 4}, 2, 2)
	if m := f.Mean(); m != 2.5 {
		t.Errorf("expected mean 2.5 got %f", m)
	}
}

func TestStdFlatFrame(t *testing.T) {
	f, _ := frame.New([]uint16{7, 7, 7, 7}, 2, 2)
	if s := f.Std(); s != 0 {
		t.Errorf("expected std 0 for flat frame, got %f", s)
	}
}

func TestDigestStable(t *testing.T) {
	a := mkGradient(4, 4)
	b := mkGradient(4, 4)
	if a.Digest() != b.Digest() {
		t.Error("identical frames produced different digests")
	}
	b.Pix[0]++
	if a.Digest() == b.Digest() {
		t.Error("different frames produced the same digest")
	}
}

func TestRot90(t *testing.T) {
	// 2x3 frame:
	// 1 2
	// 3 4
	// 5 6
	// rotated clockwise becomes 3x2:
	// 5 3 1
	// 6 4 2
	in := []uint16{1, 2, 3, 4, 5, 6}
	out := frame.Rot90(in, 2, 3)
	expected := []uint16{5, 3, 1, 6, 4, 2}
	for i, v := range expected {
		if out[i] != v {
			t.Errorf("element %d: expected %d got %d", i, v, out[i])
		}
	}
}
