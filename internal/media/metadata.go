package media

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/slowverb/slowverb/api"
)

// ReadTrack extracts metadata from an audio file. Files without readable
// tags still produce a usable Track named after the file; the engine never
// fails a load over missing metadata.
func ReadTrack(filePath string) api.Track {
	base := filepath.Base(filePath)
	track := api.Track{
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		FilePath: filePath,
	}

	file, err := os.Open(filePath)
	if err != nil {
		return track
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return track
	}

	track.Title = getOrDefault(metadata.Title(), track.Title)
	track.Artist = metadata.Artist()
	track.Album = metadata.Album()
	if pic := metadata.Picture(); pic != nil {
		track.CoverArt = pic.Data
	}
	return track
}

func getOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
