package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func isAudioExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav", ".flac", ".ogg":
		return true
	}
	return false
}

func TestScanTracks(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "album")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	writeTestWAV(t, filepath.Join(dir, "b.wav"), 100)
	writeTestWAV(t, filepath.Join(sub, "a.wav"), 100)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tracks, err := ScanTracks(context.Background(), []string{dir}, isAudioExt)
	if err != nil {
		t.Fatalf("ScanTracks: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(tracks))
	}
	// Deterministic path order regardless of walk order.
	if !strings.HasSuffix(tracks[0].FilePath, filepath.Join("album", "a.wav")) {
		t.Errorf("first track = %q, want album/a.wav", tracks[0].FilePath)
	}
	if tracks[1].Title != "b" {
		t.Errorf("second track title = %q, want b", tracks[1].Title)
	}
}

func TestScanTracksSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.wav")
	writeTestWAV(t, path, 100)

	tracks, err := ScanTracks(context.Background(), []string{path}, isAudioExt)
	if err != nil {
		t.Fatalf("ScanTracks: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Title != "one" {
		t.Fatalf("tracks = %+v, want single track titled one", tracks)
	}
}

func TestScanTracksMissingRoot(t *testing.T) {
	if _, err := ScanTracks(context.Background(), []string{"/does/not/exist"}, isAudioExt); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestReadTrackFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "My Song.wav")
	writeTestWAV(t, path, 100)

	track := ReadTrack(path)
	if track.Title != "My Song" {
		t.Errorf("Title = %q, want %q", track.Title, "My Song")
	}
	if track.FilePath != path {
		t.Errorf("FilePath = %q, want %q", track.FilePath, path)
	}
}

func TestReadTrackMissingFile(t *testing.T) {
	track := ReadTrack("/does/not/exist/Tune.mp3")
	if track.Title != "Tune" {
		t.Errorf("Title = %q, want %q", track.Title, "Tune")
	}
}
