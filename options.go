package docengine

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bobboyms/docengine/internal/dberrors"
	"github.com/bobboyms/docengine/internal/dlog"
	"github.com/bobboyms/docengine/internal/walmgr"
)

// EngineOptions configures a Dispatcher's storage directories, WAL
// durability policy, and logging, generalizing cuemby-warren's
// YAML-config-file idiom (a plain struct loaded with gopkg.in/yaml.v3,
// no env-var/flag layering) to this engine's own settings.
type EngineOptions struct {
	DataDir        string        `yaml:"data_dir"`
	MaxSegmentSize int64         `yaml:"max_segment_size"`
	WALBufferSize  int           `yaml:"wal_buffer_size"`
	WALSyncPolicy  string        `yaml:"wal_sync_policy"` // "every_write", "interval", "batch"
	WALSyncEvery   time.Duration `yaml:"wal_sync_interval"`
	WALSyncBytes   int64         `yaml:"wal_sync_batch_bytes"`

	LogLevel      string `yaml:"log_level"`
	LogJSON       bool   `yaml:"log_json"`
	ReapInterval  time.Duration `yaml:"reap_interval"`
	SessionMaxAge time.Duration `yaml:"session_max_age"`
}

// DefaultOptions returns a safe, single-process default configuration
// rooted at "./docengine_data".
func DefaultOptions() EngineOptions {
	return EngineOptions{
		DataDir:        "./docengine_data",
		MaxSegmentSize: 64 * 1024 * 1024,
		WALBufferSize:  64 * 1024,
		WALSyncPolicy:  "interval",
		WALSyncEvery:   200 * time.Millisecond,
		WALSyncBytes:   1 * 1024 * 1024,
		LogLevel:       string(dlog.InfoLevel),
		ReapInterval:   30 * time.Second,
		SessionMaxAge:  5 * time.Minute,
	}
}

// LoadOptionsFile reads an EngineOptions from a YAML file, starting
// from DefaultOptions so a partial file only overrides what it names.
func LoadOptionsFile(path string) (EngineOptions, error) {
	opts := DefaultOptions()
	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, dberrors.Wrap(err, "read engine options file")
	}
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return opts, dberrors.Wrap(err, "decode engine options file")
	}
	return opts, nil
}

func (o EngineOptions) walDir() string  { return filepath.Join(o.DataDir, "wal") }
func (o EngineOptions) diskDir() string { return filepath.Join(o.DataDir, "data") }

func (o EngineOptions) walOptions() walmgr.Options {
	policy := walmgr.SyncInterval
	switch o.WALSyncPolicy {
	case "every_write":
		policy = walmgr.SyncEveryWrite
	case "batch":
		policy = walmgr.SyncBatch
	}
	return walmgr.Options{
		DirPath:              o.walDir(),
		BufferSize:           o.WALBufferSize,
		SyncPolicy:           policy,
		SyncIntervalDuration: o.WALSyncEvery,
		SyncBatchBytes:       o.WALSyncBytes,
	}
}

func (o EngineOptions) logConfig() dlog.Config {
	return dlog.Config{Level: dlog.Level(o.LogLevel), JSONOutput: o.LogJSON}
}
