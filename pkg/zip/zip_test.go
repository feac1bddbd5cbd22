package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func readEntries(t *testing.T, archive []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestArchiveAssets(t *testing.T) {
	archive := ArchiveAssets([]Asset{
		{Filename: "panel-0.png", Data: []byte("a")},
		{Filename: "panel-1.png", Data: []byte("b")},
	})
	entries := readEntries(t, archive)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries["panel-0.png"] != "a" || entries["panel-1.png"] != "b" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestArchiveAssetsDeduplicatesNames(t *testing.T) {
	archive := ArchiveAssets([]Asset{
		{Filename: "panel.png", Data: []byte("first")},
		{Filename: "panel.png", Data: []byte("second")},
	})
	entries := readEntries(t, archive)
	if entries["panel.png"] != "first" {
		t.Fatalf("first entry wrong: %v", entries)
	}
	if entries["panel-1.png"] != "second" {
		t.Fatalf("suffixed entry wrong: %v", entries)
	}
}
