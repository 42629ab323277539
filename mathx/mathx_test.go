package mathx_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/ribeiro-lab/photond/mathx"
)

func ExampleRound() {
	fmt.Println(mathx.Round(1.2345, 0.01))
	// Output: 1.23
}

func TestMeanEmpty(t *testing.T) {
	if m := mathx.Mean(nil); m != 0 {
		t.Errorf("expected mean of empty slice to be 0, got %f", m)
	}
}

func TestMean(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	expected := 2.5
	if m := mathx.Mean(vals); m != expected {
		t.Errorf("expected %f got %f", expected, m)
	}
}

func TestStd(t *testing.T) {
	// population std of {2, 4, 4, 4, 5, 5, 7, 9} is exactly 2
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	expected := 2.
	if s := mathx.Std(vals); math.Abs(s-expected) > 1e-12 {
		t.Errorf("expected %f got %f", expected, s)
	}
}

func TestStdDegenerate(t *testing.T) {
	if s := mathx.Std([]float64{42}); s != 0 {
		t.Errorf("expected std of single element to be 0, got %f", s)
	}
}
