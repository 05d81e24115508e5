package scan

import (
	"context"

	"graft/internal/logging"
	"graft/pkg/unit"

	"github.com/viant/afs"
)

// SourceFileComparator compares the modification time of a unit's source
// against its compiled artifact. The unit is stale only when both exist and
// the source is strictly newer.
func SourceFileComparator(fs afs.Service) Comparator {
	return func(ctx context.Context, u *unit.Unit) bool {
		source, artifact := u.Source(), u.Artifact()
		if source == "" || artifact == "" {
			return false
		}
		src, err := fs.Object(ctx, source)
		if err != nil {
			logging.ScanDebug("stat source %s: %v", source, err)
			return false
		}
		art, err := fs.Object(ctx, artifact)
		if err != nil {
			logging.ScanDebug("stat artifact %s: %v", artifact, err)
			return false
		}
		return src.ModTime().After(art.ModTime())
	}
}
