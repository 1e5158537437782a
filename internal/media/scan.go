package media

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/slowverb/slowverb/api"
	"golang.org/x/sync/errgroup"
)

// ScanTracks walks roots for files accepted by supported and reads their
// tags concurrently. Results come back sorted by path so successive scans
// of the same tree are stable.
func ScanTracks(ctx context.Context, roots []string, supported func(string) bool) ([]api.Track, error) {
	var paths []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.IsDir() && supported(p) {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)

	tracks := make([]api.Track, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			tracks[i] = ReadTrack(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tracks, nil
}
