// Package fsops implements the filename conventions and move/copy
// primitives shared by the router, quarantiner, and dispatcher: the
// "<SeriesUID>#<slice>.<EXT>" naming scheme (§3, §6), and the
// collision-safe folder move (§4.8).
package fsops

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SeriesSeparator joins a series UID to a slice index in per-slice
// filenames (§6 "File-name conventions").
const SeriesSeparator = "#"

// StudySeparator joins a series UID to a rule name for study-level staging
// folder names. Kept distinct from SeriesSeparator so a rule name can never
// be mistaken for a slice suffix.
const StudySeparator = "_"

// PayloadName returns the payload filename for a given stem and extension.
func PayloadName(stem, payloadExt string) string {
	return stem + "." + payloadExt
}

// TagsName returns the sidecar tags filename for a given stem and
// extension.
func TagsName(stem, tagsExt string) string {
	return stem + "." + tagsExt
}

// SeriesPrefix returns the common prefix shared by every file belonging to
// one series.
func SeriesPrefix(seriesUID string) string {
	return seriesUID + SeriesSeparator
}

// StemFromTagsFile strips the tags extension from a tags filename,
// returning the shared stem used to derive the payload filename.
func StemFromTagsFile(name, tagsExt string) (string, bool) {
	suffix := "." + tagsExt
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	return strings.TrimSuffix(name, suffix), true
}

// StudyFolderName returns the deferred study-level staging folder name for
// a series/rule pair (§4.4b).
func StudyFolderName(seriesUID, ruleName string) string {
	return seriesUID + StudySeparator + ruleName
}

// LockName returns the per-series incoming lock sentinel name (§3).
func LockName(seriesUID string) string {
	return seriesUID + ".LOCK"
}

// ErrorMarkerSuffix is the filename suffix the error quarantiner scans
// for in incoming/ (§4.9).
const ErrorMarkerSuffix = ".ERROR"

// PairedPayloadFromError strips the error-marker suffix from an error
// filename, returning the name of the paired payload file it quarantines
// alongside, if any.
func PairedPayloadFromError(errorFileName string) string {
	return strings.TrimSuffix(errorFileName, ErrorMarkerSuffix)
}

// JoinAll is a small readability wrapper around filepath.Join used
// throughout the core, so every path is built as a normalized join and
// never by raw string concatenation (spec.md §9, Open Question iii).
func JoinAll(parts ...string) string {
	return filepath.Join(parts...)
}

// UniqueSuffixed appends a suffix to a base path's final component,
// used by collision-safe moves.
func UniqueSuffixed(base, suffix string) string {
	dir := filepath.Dir(base)
	name := filepath.Base(base)
	return filepath.Join(dir, fmt.Sprintf("%s_%s", name, suffix))
}
