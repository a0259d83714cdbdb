package docengine

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobboyms/docengine/internal/document"
	"github.com/bobboyms/docengine/internal/indexengine"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	opts := DefaultOptions()
	opts.DataDir = t.TempDir()
	d, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func newSession(t *testing.T, d *Dispatcher) SessionID {
	t.Helper()
	sid, err := d.NewSession()
	require.NoError(t, err)
	return sid
}

func setupDB(t *testing.T, d *Dispatcher, database, collection string) {
	t.Helper()
	require.NoError(t, d.CreateDatabase(newSession(t, d), database))
	require.NoError(t, d.CreateCollection(newSession(t, d), database, collection))
}

// scenario 1: insert-find-size.
func TestDispatcher_InsertFindSize(t *testing.T) {
	d := newTestDispatcher(t)
	setupDB(t, d, "T", "C")

	for i := 0; i < 50; i++ {
		_, err := d.InsertOne(newSession(t, d), "T", "C", fmt.Sprintf(`{"count":%d}`, i))
		require.NoError(t, err)
	}

	size, err := d.Size("T", "C")
	require.NoError(t, err)
	require.Equal(t, 50, size)

	_, docs, err := d.Find(newSession(t, d), "T", "C", Gt("/count", int64(40)), -1)
	require.NoError(t, err)
	require.Len(t, docs, 9)
}

// scenario 2: update $set idempotence.
func TestDispatcher_UpdateSetIdempotence(t *testing.T) {
	d := newTestDispatcher(t)
	setupDB(t, d, "T", "C")

	_, err := d.InsertOne(newSession(t, d), "T", "C", `{"_id":"a","x":1}`)
	require.NoError(t, err)

	modified, err := d.UpdateOne(newSession(t, d), "T", "C", Eq("/_id", "a"), `{"$set":{"x":1}}`, false)
	require.NoError(t, err)
	require.Len(t, modified, 0)

	modified, err = d.UpdateOne(newSession(t, d), "T", "C", Eq("/_id", "a"), `{"$set":{"x":2}}`, false)
	require.NoError(t, err)
	require.Len(t, modified, 1)

	doc, found, err := d.FindOne(newSession(t, d), "T", "C", Eq("/_id", "a"))
	require.NoError(t, err)
	require.True(t, found)
	parsed, err := document.FromJSON(doc)
	require.NoError(t, err)
	v, err := parsed.GetInt64("/x")
	require.NoError(t, err)
	require.Equal(t, int64(2), v)
}

// scenario 3: update $inc numeric and string.
func TestDispatcher_UpdateInc(t *testing.T) {
	d := newTestDispatcher(t)
	setupDB(t, d, "T", "C")

	_, err := d.InsertOne(newSession(t, d), "T", "C", `{"_id":"a","x":5,"s":"ab"}`)
	require.NoError(t, err)

	modified, err := d.UpdateOne(newSession(t, d), "T", "C", Eq("/_id", "a"), `{"$inc":{"x":3,"s":"cd"}}`, false)
	require.NoError(t, err)
	require.Len(t, modified, 1)

	doc, found, err := d.FindOne(newSession(t, d), "T", "C", Eq("/_id", "a"))
	require.NoError(t, err)
	require.True(t, found)
	parsed, err := document.FromJSON(doc)
	require.NoError(t, err)
	x, err := parsed.GetInt64("/x")
	require.NoError(t, err)
	require.Equal(t, int64(8), x)
	s, err := parsed.GetString("/s")
	require.NoError(t, err)
	require.Equal(t, "abcd", s)
}

// scenario 6: index range.
func TestDispatcher_IndexRange(t *testing.T) {
	d := newTestDispatcher(t)
	setupDB(t, d, "T", "C")

	for i := 0; i < 100; i++ {
		_, err := d.InsertOne(newSession(t, d), "T", "C", fmt.Sprintf(`{"count":%d}`, i))
		require.NoError(t, err)
	}

	require.NoError(t, d.CreateIndex(newSession(t, d), "T", "C", "by_count", []string{"/count"}, indexengine.Memory, indexengine.Gte, false))

	_, docs, err := d.Find(newSession(t, d), "T", "C", Gte("/count", int64(90)), -1)
	require.NoError(t, err)
	require.Len(t, docs, 10)
}

// scenario 5: crash recovery.
func TestDispatcher_CrashRecovery(t *testing.T) {
	dataDir := t.TempDir()
	opts := DefaultOptions()
	opts.DataDir = dataDir

	d, err := Open(opts)
	require.NoError(t, err)

	collections := []string{"C1", "C2", "C3"}
	require.NoError(t, d.CreateDatabase(newSession(t, d), "T"))
	for _, coll := range collections {
		require.NoError(t, d.CreateCollection(newSession(t, d), "T", coll))
	}

	inserted := map[string]int{}
	for i := 0; i < 100; i++ {
		coll := collections[i%len(collections)]
		_, err := d.InsertOne(newSession(t, d), "T", coll, fmt.Sprintf(`{"n":%d}`, i))
		require.NoError(t, err)
		inserted[coll]++
	}

	// commit's pipeline flushes the checkpoint synchronously on every
	// call, so nothing is ever left un-flushed to replay here; Close
	// releases the WAL/disk file handles before a fresh Dispatcher
	// reopens the same data directory (two live bbolt handles on one
	// file in the same process would otherwise deadlock on its flock).
	require.NoError(t, d.Close())

	reopened, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.Load())

	for _, coll := range collections {
		size, err := reopened.Size("T", coll)
		require.NoError(t, err)
		require.Equal(t, inserted[coll], size)
	}
}

// deleting documents removes them durably.
func TestDispatcher_DeleteMany(t *testing.T) {
	d := newTestDispatcher(t)
	setupDB(t, d, "T", "C")

	for i := 0; i < 10; i++ {
		_, err := d.InsertOne(newSession(t, d), "T", "C", fmt.Sprintf(`{"count":%d}`, i))
		require.NoError(t, err)
	}

	deleted, err := d.DeleteMany(newSession(t, d), "T", "C", Lt("/count", int64(5)))
	require.NoError(t, err)
	require.Len(t, deleted, 5)

	size, err := d.Size("T", "C")
	require.NoError(t, err)
	require.Equal(t, 5, size)
}

// An upsert materializes a fresh document from the update when nothing
// matches the filter.
func TestDispatcher_UpdateOneUpsert(t *testing.T) {
	d := newTestDispatcher(t)
	setupDB(t, d, "T", "C")

	modified, err := d.UpdateOne(newSession(t, d), "T", "C", Eq("/_id", "missing"), `{"$set":{"x":1}}`, true)
	require.NoError(t, err)
	require.Len(t, modified, 1)

	size, err := d.Size("T", "C")
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestDispatcher_SessionReentryRejected(t *testing.T) {
	d := newTestDispatcher(t)
	sid := newSession(t, d)

	done, err := d.begin(sid, "insert_one")
	require.NoError(t, err)
	defer done()

	_, err = d.begin(sid, "insert_one")
	require.Error(t, err)
}

func TestDispatcher_PoisonedRejectsCalls(t *testing.T) {
	d := newTestDispatcher(t)
	d.poisoned.Store(true)

	err := d.CreateDatabase(newSession(t, d), "T")
	require.Error(t, err)
}

func TestDispatcher_InspectAndCheckpoint(t *testing.T) {
	d := newTestDispatcher(t)
	setupDB(t, d, "T", "C")

	for i := 0; i < 5; i++ {
		_, err := d.InsertOne(newSession(t, d), "T", "C", fmt.Sprintf(`{"count":%d}`, i))
		require.NoError(t, err)
	}

	require.NoError(t, d.Checkpoint())

	report, err := d.Inspect()
	require.NoError(t, err)
	require.Len(t, report.Collections, 1)
	require.Equal(t, "T", report.Collections[0].Database)
	require.Equal(t, "C", report.Collections[0].Collection)
	require.Equal(t, 5, report.Collections[0].Size)
	require.Equal(t, report.WALID, report.CheckpointID)
}

func TestDispatcher_VacuumCompactsSegments(t *testing.T) {
	d := newTestDispatcher(t)
	setupDB(t, d, "T", "C")

	sid := newSession(t, d)
	id, err := d.InsertOne(sid, "T", "C", `{"x":1}`)
	require.NoError(t, err)
	_, err = d.UpdateOne(newSession(t, d), "T", "C", Eq("/_id", id), `{"$set":{"x":2}}`, false)
	require.NoError(t, err)

	kept, err := d.Vacuum("T", "C")
	require.NoError(t, err)
	require.Equal(t, 1, kept)

	size, err := d.Size("T", "C")
	require.NoError(t, err)
	require.Equal(t, 1, size)
}

func TestLoadOptionsFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /tmp/custom\nlog_level: debug\n"), 0644))

	opts, err := LoadOptionsFile(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom", opts.DataDir)
	require.Equal(t, "debug", opts.LogLevel)
	require.Equal(t, int64(64*1024*1024), opts.MaxSegmentSize)
}
