package zip

import (
	stdzip "archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssetsRoundTrip(t *testing.T) {
	archive, err := ArchiveAssets([]Asset{
		{Filename: "photo_1.jpg", MIME: "image/jpeg", Data: []byte("front")},
		{Filename: "card.png", MIME: "image/png", Data: []byte("card")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}

	zr, err := stdzip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("reading archive back: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	want := map[string]string{"photo_1.jpg": "front", "card.png": "card"}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("reading %s: %v", f.Name, err)
		}
		if string(data) != want[f.Name] {
			t.Fatalf("entry %s: got %q, want %q", f.Name, data, want[f.Name])
		}
	}
}

func TestArchiveAssetsEmpty(t *testing.T) {
	archive, err := ArchiveAssets(nil)
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	zr, err := stdzip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("reading archive back: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("expected empty archive, got %d entries", len(zr.File))
	}
}
