package docengine

import (
	"github.com/bobboyms/docengine/internal/dberrors"
)

// CollectionStats summarizes one collection for administrative inspection.
type CollectionStats struct {
	Database   string
	Collection string
	Size       int
}

// InspectReport is the read-only snapshot cmd/docengine-cli's "inspect"
// subcommand prints: every collection discovered on disk, its live
// in-memory document count, and the WAL/checkpoint watermarks.
type InspectReport struct {
	Collections  []CollectionStats
	WALID        uint64
	CheckpointID uint64
}

// Inspect gathers diagnostic state without touching session bookkeeping,
// since it mutates nothing and isn't a statement in spec.md §5's sense.
func (d *Dispatcher) Inspect() (InspectReport, error) {
	pairs, err := d.disk.ListCollections()
	if err != nil {
		return InspectReport{}, dberrors.Wrap(err, "list collections for inspect")
	}

	report := InspectReport{WALID: d.wal.CurrentID(), CheckpointID: d.disk.LastFlushed()}
	for _, pair := range pairs {
		database, collection := pair[0], pair[1]
		size, err := d.mem.Size(database, collection)
		if err != nil {
			// On disk but not (yet) loaded into memory, e.g. inspecting
			// before Load runs — report it with no in-memory size rather
			// than failing the whole snapshot.
			size = 0
		}
		report.Collections = append(report.Collections, CollectionStats{
			Database: database, Collection: collection, Size: size,
		})
	}
	return report, nil
}

// Checkpoint forces a checkpoint flush up to the WAL's current id. The
// commit pipeline in commit.go already flushes after every statement, so
// this is mostly useful after Load or for an operator-triggered "flush
// now" — the administrative checkpoint operation SPEC_FULL's domain stack
// table names for cmd/docengine-cli.
func (d *Dispatcher) Checkpoint() error {
	return d.disk.FlushUpTo(d.wal.CurrentID())
}

// Vacuum compacts one collection's on-disk segment chain, discarding
// tombstones and superseded document versions, per SPEC_FULL's
// vacuum/compaction supplement. It reads the collection's current live
// set and rewrites the segment chain from scratch; a write landing on the
// same collection between that read and the rewrite would be lost, so
// this is meant for offline or between-batch use via the CLI, not for
// calling concurrently with a busy collection.
func (d *Dispatcher) Vacuum(database, collection string) (int, error) {
	return d.disk.Vacuum(database, collection)
}
