package sim_test

import (
	"testing"
	"time"

	"github.com/ribeiro-lab/photond/camera"
	"github.com/ribeiro-lab/photond/frame"
	"github.com/ribeiro-lab/photond/sim"
)

func TestFrameGeometry(t *testing.T) {
	cam := sim.New(sim.Config{Width: 64, Height: 48})
	buf, err := cam.GetFrame()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 64*48 {
		t.Errorf("expected %d pixels, got %d", 64*48, len(buf))
	}
	res, _ := cam.GetRes()
	if res != [2]int{48, 64} {
		t.Errorf("expected res (48, 64), got %v", res)
	}
}

func TestAOIChangesGeometry(t *testing.T) {
	cam := sim.New(sim.Config{Width: 64, Height: 48})
	err := cam.SetAOI(camera.AOI{Left: 1, Top: 1, Width: 16, Height: 8})
	if err != nil {
		t.Fatal(err)
	}
	buf, _ := cam.GetFrame()
	if len(buf) != 16*8 {
		t.Errorf("expected %d pixels after AOI change, got %d", 16*8, len(buf))
	}
}

func TestDarkLevel(t *testing.T) {
	cam := sim.New(sim.Config{Width: 100, Height: 100, DarkADU: 100, NoiseADU: 2, Seed: 1})
	buf, _ := cam.GetFrame()
	f, err := frame.New(buf, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	m := f.Mean()
	if m < 95 || m > 105 {
		t.Errorf("expected mean near dark level 100, got %f", m)
	}
}

func TestSignalScalesWithExposure(t *testing.T) {
	cfg := sim.Config{
		Width: 50, Height: 50,
		DarkADU: 100, SignalADU: 200, NoiseADU: 1,
		RefExposure: 5 * time.Millisecond,
		Seed:        2,
	}
	cam := sim.New(cfg)
	buf, _ := cam.GetFrame()
	f, _ := frame.New(buf, 50, 50)
	atRef := f.Mean()

	cam.SetExposureTime(10 * time.Millisecond)
	buf, _ = cam.GetFrame()
	f, _ = frame.New(buf, 50, 50)
	atDouble := f.Mean()

	// doubling exposure should roughly double the signal above dark
	gotRatio := (atDouble - 100) / (atRef - 100)
	if gotRatio < 1.9 || gotRatio > 2.1 {
		t.Errorf("expected signal ratio ~2 when doubling exposure, got %f", gotRatio)
	}
}

func TestDeterministicReplay(t *testing.T) {
	cfg := sim.Config{Width: 8, Height: 8, DarkADU: 50, NoiseADU: 3, Seed: 7}
	a, _ := sim.New(cfg).GetFrame()
	b, _ := sim.New(cfg).GetFrame()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different frames at pixel %d", i)
		}
	}
}

func TestBurstLength(t *testing.T) {
	cam := sim.New(sim.Config{Width: 10, Height: 10})
	cube, err := cam.Burst(5, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(cube) != 5*10*10 {
		t.Errorf("expected %d samples in burst cube, got %d", 500, len(cube))
	}
}
