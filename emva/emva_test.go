package emva_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/ribeiro-lab/photond/emva"
)

func ExampleCalibration_ADUToPhotons() {
	photons := emva.BFSU304S2M.ADUToPhotons(1000, 100)
	fmt.Printf("%.1f\n", photons)
	// Output: 509.5
}

func TestADUToPhotonsMatchesChain(t *testing.T) {
	c := emva.BFSU304S2M
	var (
		signal = 1000.
		dark   = 100.
	)
	// 900 ADU * 0.35 e-/ADU = 315 e-; 315 / 0.6182 = 509.54...
	electrons := c.ADUToElectrons(signal, dark)
	if electrons != 315 {
		t.Errorf("expected 315 electrons, got %f", electrons)
	}
	direct := c.ADUToPhotons(signal, dark)
	chained := c.ElectronsToPhotons(electrons)
	if direct != chained {
		t.Errorf("ADUToPhotons (%f) disagrees with ADU->e->photon chain (%f)", direct, chained)
	}
	expected := 315 / 0.6182
	if math.Abs(direct-expected) > 1e-9 {
		t.Errorf("expected %f photons, got %f", expected, direct)
	}
}

func TestNegativeSignalClampsToZero(t *testing.T) {
	c := emva.BFSU304S2M
	// signal below baseline is darker than dark; zero photons, not negative
	if p := c.ADUToPhotons(50, 100); p != 0 {
		t.Errorf("expected 0 photons for signal below baseline, got %f", p)
	}
	if e := c.ADUToElectrons(50, 100); e != 0 {
		t.Errorf("expected 0 electrons for signal below baseline, got %f", e)
	}
}

func TestSNRZeroSignal(t *testing.T) {
	if snr := emva.BFSU304S2M.SNR(0); snr != 0 {
		t.Errorf("expected SNR 0 at zero signal, got %f", snr)
	}
}

func TestSNRShotNoiseLimit(t *testing.T) {
	// at high signal SNR approaches sqrt(electrons)
	c := emva.BFSU304S2M
	photons := 1e6
	electrons := photons * c.QE
	snr := c.SNR(photons)
	approx := math.Sqrt(electrons)
	if math.Abs(snr-approx)/approx > 0.01 {
		t.Errorf("expected SNR ~ sqrt(S) = %f at high signal, got %f", approx, snr)
	}
}

func TestQEAtWindow(t *testing.T) {
	c := emva.BFSU304S2M
	qe, measured := c.QEAt(530)
	if qe != c.QE || !measured {
		t.Errorf("expected measured QE within window, got %f %v", qe, measured)
	}
	qe, measured = c.QEAt(800)
	if qe != c.QE || measured {
		t.Errorf("expected unmeasured QE outside window, got %f %v", qe, measured)
	}
}

func TestValidate(t *testing.T) {
	if err := emva.BFSU304S2M.Validate(); err != nil {
		t.Errorf("expected published calibration to validate, got %v", err)
	}
	bad := emva.Calibration{Gain: 0.35}
	if err := bad.Validate(); err != emva.ErrZeroQE {
		t.Errorf("expected ErrZeroQE, got %v", err)
	}
	bad = emva.Calibration{QE: 0.5}
	if err := bad.Validate(); err != emva.ErrNonPositiveGain {
		t.Errorf("expected ErrNonPositiveGain, got %v", err)
	}
}
