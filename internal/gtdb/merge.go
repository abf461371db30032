package gtdb

import (
	"slices"

	"go.uber.org/zap"

	"github.com/banshee-data/gtdb/internal/logging"
)

// Merge combines partial indices in order. The group ids of each partial are
// shifted by the number of entries in all partials before it, which keeps
// them unique across partials while preserving grouping within one.
//
// Only classes in vocab are kept (an empty vocab keeps everything); classes
// without entries are removed. The partials are not modified.
func Merge(vocab []string, partials []Index, logger *zap.Logger) Index {
	log := logging.OrNop(logger)
	merged := make(Index, len(vocab))
	for _, class := range vocab {
		merged[class] = nil
	}

	var offset int64
	for p, part := range partials {
		for _, class := range part.Classes() {
			entries := part[class]
			if len(vocab) > 0 && !slices.Contains(vocab, class) {
				log.Warn("dropping class outside dataset vocabulary",
					zap.Int("partial", p),
					zap.String("class", class),
					zap.Int("entries", len(entries)))
				continue
			}
			for _, e := range entries {
				e.GroupID += offset
				merged[class] = append(merged[class], e)
			}
		}
		offset += int64(part.Len())
	}

	for class, entries := range merged {
		if len(entries) == 0 {
			delete(merged, class)
		}
	}
	return merged
}
