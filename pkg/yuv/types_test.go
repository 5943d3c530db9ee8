package yuv

import "testing"

func TestLumaAddCarriesAcrossBytes(t *testing.T) {
	a := NewLuma(200)
	b := NewLuma(100)
	sum := a.Add(b)
	if sum.Uint64() != 300 {
		t.Fatalf("sum = %d, want 300", sum.Uint64())
	}
}

func TestLumaCmp(t *testing.T) {
	small := NewLuma(1)
	big := NewLuma(2)
	if small.Cmp(big) >= 0 {
		t.Fatal("1 should compare less than 2")
	}
	if big.Cmp(small) <= 0 {
		t.Fatal("2 should compare greater than 1")
	}
	if small.Cmp(NewLuma(1)) != 0 {
		t.Fatal("equal lumas should compare equal")
	}
}

func TestLumaIsZero(t *testing.T) {
	if !NewLuma(0).IsZero() {
		t.Fatal("NewLuma(0) must be zero")
	}
	if NewLuma(1).IsZero() {
		t.Fatal("NewLuma(1) must not be zero")
	}
}

func TestChromaFromBytesRejectsWrongLength(t *testing.T) {
	if _, err := ChromaFromBytes(make([]byte, ChromaSize-1)); err == nil {
		t.Fatal("expected ErrInvalidChromaLength for a short slice")
	}
}

func TestPixelIsEmpty(t *testing.T) {
	if !(Pixel{}).IsEmpty() {
		t.Fatal("zero-value Pixel must be IsEmpty")
	}
	nonEmpty := Pixel{Luma: NewLuma(1)}
	if nonEmpty.IsEmpty() {
		t.Fatal("a nonzero luma must not be IsEmpty")
	}
}
