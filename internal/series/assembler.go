// Package series discovers the files of one named series in the incoming
// directory and loads its authoritative tags (component D). Grounded on
// original_source/routing/route_series.py's file-list collection loop
// (os.scandir + endswith/startswith) and master-tags read.
package series

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hermes-router/hermes/internal/errs"
	"github.com/hermes-router/hermes/internal/fsops"
	"github.com/hermes-router/hermes/internal/tags"
)

// File is one payload+sidecar pair belonging to a series.
type File struct {
	Stem string // "<SeriesUID>#<slice>"
}

// PayloadPath returns the payload file path for this file pair.
func (f File) PayloadPath(dir, payloadExt string) string {
	return filepath.Join(dir, fsops.PayloadName(f.Stem, payloadExt))
}

// TagsPath returns the sidecar tags file path for this file pair.
func (f File) TagsPath(dir, tagsExt string) string {
	return filepath.Join(dir, fsops.TagsName(f.Stem, tagsExt))
}

// Assembled is the result of discovering one series in incoming/.
type Assembled struct {
	SeriesUID string
	Files     []File
	Tags      tags.Tags
}

// Discover enumerates incoming/ for files matching
// "<SeriesUID>#*.<tagsExt>", derives their stems, and loads the tags file
// of the first stem in directory-enumeration order as the authoritative
// tag set for rule evaluation (§4.4 steps 2-3). Directory order is not
// semantically significant per spec.md; the stems are sorted by name (the
// order os.ReadDir already returns), so the first stem is the lexically
// smallest.
//
// A series with no matching files returns an Assembled carrying only the
// SeriesUID, with len(Files) == 0 and a nil error; the caller should treat that as "no
// work to do" and return, not as a failure.
func Discover(incomingDir, seriesUID, tagsExt string) (Assembled, error) {
	entries, err := os.ReadDir(incomingDir)
	if err != nil {
		return Assembled{}, fmt.Errorf("%w: scan incoming %s: %v", errs.ErrFSTransient, incomingDir, err)
	}

	prefix := fsops.SeriesPrefix(seriesUID)
	suffix := "." + tagsExt

	var stems []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		stems = append(stems, strings.TrimSuffix(name, suffix))
	}

	if len(stems) == 0 {
		return Assembled{SeriesUID: seriesUID}, nil
	}

	// os.ReadDir already returns entries sorted by filename; stems
	// inherit that order. Kept explicit for readers who move off
	// os.ReadDir later.
	sort.Strings(stems)

	masterPath := filepath.Join(incomingDir, stems[0]+suffix)
	t, err := tags.Load(masterPath)
	if err != nil {
		return Assembled{}, err
	}

	files := make([]File, 0, len(stems))
	for _, s := range stems {
		files = append(files, File{Stem: s})
	}

	return Assembled{SeriesUID: seriesUID, Files: files, Tags: t}, nil
}

// PendingUIDs enumerates the distinct series UIDs currently present in
// incoming/, derived from "<SeriesUID>#<slice>.<tagsExt>" filenames. This
// is what the router's repeated-timer shell (component I) calls each tick
// to discover the work list before calling Discover/RouteSeries per UID —
// the original source's router main loop (outside the filtered
// original_source/ index) is not included verbatim, but every route_series
// call site it drives takes exactly one series UID at a time, which this
// enumeration reconstructs from the same file-naming convention.
func PendingUIDs(incomingDir, tagsExt string) ([]string, error) {
	entries, err := os.ReadDir(incomingDir)
	if err != nil {
		return nil, fmt.Errorf("%w: scan incoming %s: %v", errs.ErrFSTransient, incomingDir, err)
	}

	suffix := "." + tagsExt
	seen := make(map[string]bool)
	var uids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		stem := strings.TrimSuffix(name, suffix)
		idx := strings.Index(stem, fsops.SeriesSeparator)
		if idx < 0 {
			continue
		}
		uid := stem[:idx]
		if !seen[uid] {
			seen[uid] = true
			uids = append(uids, uid)
		}
	}

	sort.Strings(uids)
	return uids, nil
}
