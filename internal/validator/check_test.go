package validator

import (
	"testing"

	"github.com/rawblock/yuvd/pkg/yuv"
)

func chromaN(b byte) yuv.Chroma {
	var c yuv.Chroma
	c[0] = b
	return c
}

func TestSameChromaEmptyAndSingleton(t *testing.T) {
	if _, ok := sameChroma(nil); !ok {
		t.Fatal("an empty proof list trivially shares one chroma")
	}
	single := []yuv.PixelProof{{Pixel: yuv.Pixel{Chroma: chromaN(1)}}}
	chroma, ok := sameChroma(single)
	if !ok || chroma != chromaN(1) {
		t.Fatalf("got chroma=%v ok=%v, want chromaN(1)/true", chroma, ok)
	}
}

func TestSameChromaRejectsMismatch(t *testing.T) {
	proofs := []yuv.PixelProof{
		{Pixel: yuv.Pixel{Chroma: chromaN(1)}},
		{Pixel: yuv.Pixel{Chroma: chromaN(2)}},
	}
	if _, ok := sameChroma(proofs); ok {
		t.Fatal("two distinct chromas must not be reported as matching")
	}
}

func TestSameChromaIgnoresEmptyPixelEntries(t *testing.T) {
	proofs := []yuv.PixelProof{
		{Kind: yuv.ProofEmptyPixel, Pixel: yuv.Pixel{Chroma: chromaN(9)}},
		{Pixel: yuv.Pixel{Chroma: chromaN(1)}},
	}
	chroma, ok := sameChroma(proofs)
	if !ok || chroma != chromaN(1) {
		t.Fatalf("an EmptyPixel entry's chroma must not be compared; got chroma=%v ok=%v", chroma, ok)
	}
}

func TestCheckAnnouncementStructureRequiresExactlyOneBody(t *testing.T) {
	if err := checkAnnouncementStructure(nil); err == nil {
		t.Fatal("nil announcement body must be rejected")
	}
	if err := checkAnnouncementStructure(&yuv.AnnouncementData{}); err == nil {
		t.Fatal("announcement with no body set must be rejected")
	}
	mixed := &yuv.AnnouncementData{
		Chroma: &yuv.ChromaAnnouncement{},
		Issue:  &yuv.IssueAnnouncement{},
	}
	if err := checkAnnouncementStructure(mixed); err == nil {
		t.Fatal("announcement carrying two bodies at once must be rejected")
	}
	ok := &yuv.AnnouncementData{Freeze: &yuv.FreezeAnnouncement{}}
	if err := checkAnnouncementStructure(ok); err != nil {
		t.Fatalf("a single Freeze body must be accepted, got %v", err)
	}
}
