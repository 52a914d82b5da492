// Package dataset prepares hydrological and meteorological time series for
// WEAP from station spreadsheets.
package dataset

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// MatchNames keeps the requested names that exist in available, in request
// order. No overlap is a NoMatchError; a partial overlap logs the dropped
// names and proceeds.
func MatchNames(source string, requested, available []string, logger *slog.Logger) ([]string, error) {
	have := make(map[string]bool, len(available))
	for _, a := range available {
		have[a] = true
	}
	var kept, dropped []string
	seen := make(map[string]bool, len(requested))
	for _, r := range requested {
		if seen[r] {
			continue
		}
		seen[r] = true
		if have[r] {
			kept = append(kept, r)
		} else {
			dropped = append(dropped, r)
		}
	}
	if len(kept) == 0 {
		return nil, &domain.NoMatchError{Source: source, Requested: requested, Available: available}
	}
	if len(dropped) > 0 {
		logger.Warn("requested names not found, dropping",
			"source", source,
			"dropped", dropped,
			"kept", kept,
		)
	}
	return kept, nil
}

// SourceName is the input file name without directory or extension, used as
// the prefix of output dataset names.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
