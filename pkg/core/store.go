package core

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"bplusdb/pkg/bptree"
	"bplusdb/pkg/codec"
	"bplusdb/pkg/common"
	"bplusdb/pkg/config"
	"bplusdb/pkg/monitor"
	"bplusdb/pkg/storage"
	"bplusdb/pkg/storage/sstable"
)

// SnapshotFile is the database holding checkpoints inside the storage path.
const SnapshotFile = "snapshots.db"

type tree = bptree.Tree[common.KeyType, common.ValueType]

var _ Index = (*Store)(nil)

// Store is an int64 to bytes index backed by a B+ tree, checkpointed as
// whole snapshots into a SQLite database. Changes made after the last
// checkpoint live only in memory.
//
// Store does no locking; callers serialize access.
type Store struct {
	tree      *tree
	snapshots *storage.SnapshotStore
	stats     *monitor.WorkloadStats
	log       *zap.Logger
	conf      *config.Config
	format    codec.Format
	dirty     bool
	last      storage.SnapshotInfo
}

// NewStore opens the snapshot database under cfg.Storage.Path and, unless
// disabled, restores the latest snapshot.
func NewStore(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := codec.ParseFormat(cfg.Storage.Codec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Storage.Path, 0755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", cfg.Storage.Path)
	}

	t, err := bptree.New[common.KeyType, common.ValueType](cfg.Tree.Order)
	if err != nil {
		return nil, err
	}
	snapshots, err := storage.OpenSnapshotStore(filepath.Join(cfg.Storage.Path, SnapshotFile))
	if err != nil {
		return nil, err
	}

	s := &Store{
		tree:      t,
		snapshots: snapshots,
		stats:     monitor.NewWorkloadStats(),
		log:       logger.With(zap.String("snapshot_name", cfg.Storage.SnapshotName)),
		conf:      cfg,
		format:    format,
	}

	if cfg.Storage.ShouldRestore() {
		if _, err := s.Restore(context.Background()); err != nil && !errors.Is(err, storage.ErrNoSnapshot) {
			snapshots.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Put(key common.KeyType, val common.ValueType) {
	s.stats.RecordWrite()
	s.tree.Insert(key, val)
	s.dirty = true
}

func (s *Store) Get(key common.KeyType) (common.ValueType, bool) {
	s.stats.RecordRead()
	val, ok := s.tree.TrySearch(key)
	if ok {
		s.stats.RecordHit()
	}
	return val, ok
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key common.KeyType) bool {
	s.stats.RecordDelete()
	if !s.tree.Delete(key) {
		return false
	}
	s.dirty = true
	return true
}

// Scan returns the records with start <= key <= end in key order.
func (s *Store) Scan(start, end common.KeyType) []common.Record {
	s.stats.RecordScan()
	entries := s.tree.RangeQuery(start, end)
	records := make([]common.Record, len(entries))
	for i, e := range entries {
		records[i] = common.Record{Key: e.Key, Value: e.Value}
	}
	return records
}

func (s *Store) Range(start, end common.KeyType) []common.Record {
	return s.Scan(start, end)
}

// Load replaces the whole index with records, in any order. Repeated keys
// keep their last value.
func (s *Store) Load(records []common.Record) {
	start := time.Now()
	entries := make([]bptree.Entry[common.KeyType, common.ValueType], len(records))
	for i, r := range records {
		entries[i] = bptree.Entry[common.KeyType, common.ValueType]{Key: r.Key, Value: r.Value}
	}
	s.tree.BulkLoad(entries)
	s.dirty = true

	s.log.Info("bulk load",
		zap.Int("records", len(records)),
		zap.Int("keys", s.tree.Len()),
		zap.Int("height", s.tree.Height()),
		zap.Duration("elapsed", time.Since(start)))
}

// Dump writes every record in key order to a sorted table file at path.
func (s *Store) Dump(path string) (int, error) {
	b, err := sstable.NewBuilder(path)
	if err != nil {
		return 0, err
	}
	s.tree.Ascend(func(key common.KeyType, val common.ValueType) bool {
		err = b.Add(key, val)
		return err == nil
	})
	if err != nil {
		b.Close()
		return 0, err
	}
	if err := b.Close(); err != nil {
		return 0, err
	}
	s.log.Info("dump", zap.String("path", path), zap.Int("records", b.Count()))
	return b.Count(), nil
}

// LoadFile replaces the index with the contents of a sorted table file
// written by Dump.
func (s *Store) LoadFile(path string) error {
	sst, err := sstable.Open(path)
	if err != nil {
		return err
	}
	defer sst.Close()

	var records []common.Record
	it := sst.Iter()
	for it.Next() {
		records = append(records, common.Record{Key: it.Key(), Value: it.Value()})
	}
	if err := it.Err(); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	s.Load(records)
	return nil
}

// Checkpoint encodes the current tree and stores it as the newest snapshot,
// then prunes snapshots beyond the configured retention.
func (s *Store) Checkpoint(ctx context.Context) (storage.SnapshotInfo, error) {
	start := time.Now()
	payload, err := codec.EncodeTree(s.format, s.tree)
	if err != nil {
		return storage.SnapshotInfo{}, err
	}

	info, err := s.snapshots.Save(ctx, storage.SnapshotInfo{
		Name:   s.conf.Storage.SnapshotName,
		Format: string(s.format),
		Order:  s.tree.Order(),
		Keys:   s.tree.Len(),
	}, payload)
	if err != nil {
		return storage.SnapshotInfo{}, err
	}
	s.dirty = false
	s.last = info

	pruned, err := s.snapshots.Prune(ctx, s.conf.Storage.SnapshotName, s.conf.Storage.KeepSnapshots)
	if err != nil {
		s.log.Warn("prune snapshots", zap.Error(err))
	}

	s.log.Info("checkpoint",
		zap.String("snapshot_id", info.ID),
		zap.Int("keys", info.Keys),
		zap.Int("bytes", info.Size),
		zap.Int64("pruned", pruned),
		zap.Duration("elapsed", time.Since(start)))
	return info, nil
}

// Restore replaces the tree with the latest snapshot, discarding changes
// made since. It returns an error matching storage.ErrNoSnapshot when
// nothing has been saved yet.
func (s *Store) Restore(ctx context.Context) (storage.SnapshotInfo, error) {
	info, payload, err := s.snapshots.Latest(ctx, s.conf.Storage.SnapshotName)
	if err != nil {
		return storage.SnapshotInfo{}, err
	}
	return info, s.restore(info, payload)
}

// RestoreID replaces the tree with the snapshot id.
func (s *Store) RestoreID(ctx context.Context, id string) (storage.SnapshotInfo, error) {
	info, payload, err := s.snapshots.Get(ctx, id)
	if err != nil {
		return storage.SnapshotInfo{}, err
	}
	return info, s.restore(info, payload)
}

func (s *Store) restore(info storage.SnapshotInfo, payload []byte) error {
	start := time.Now()
	t, err := codec.DecodeTree[common.KeyType, common.ValueType](payload)
	if err != nil {
		return errors.Wrapf(err, "restore snapshot %s", info.ID)
	}
	if t.Order() != s.conf.Tree.Order {
		s.log.Warn("snapshot order differs from configuration, keeping snapshot order",
			zap.Int("snapshot_order", t.Order()),
			zap.Int("config_order", s.conf.Tree.Order))
	}

	s.tree = t
	s.dirty = false
	s.last = info
	s.log.Info("restore",
		zap.String("snapshot_id", info.ID),
		zap.Int("keys", t.Len()),
		zap.Int("height", t.Height()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Snapshots lists the stored snapshots for this store, newest first.
func (s *Store) Snapshots(ctx context.Context) ([]storage.SnapshotInfo, error) {
	return s.snapshots.List(ctx, s.conf.Storage.SnapshotName)
}

// Verify checks every tree invariant.
func (s *Store) Verify() error {
	return s.tree.Verify()
}

func (s *Store) Size() int { return s.tree.Len() }

func (s *Store) Type() string { return "BPlusTree" }

func (s *Store) Dirty() bool { return s.dirty }

func (s *Store) Stats() map[string]interface{} {
	shape := s.tree.Stats()
	return map[string]interface{}{
		"order":         shape.Order,
		"keys":          shape.Keys,
		"height":        shape.Height,
		"leaves":        shape.Leaves,
		"internals":     shape.Internals,
		"dirty":         s.dirty,
		"last_snapshot": s.last.ID,
		"codec":         string(s.format),
		"reads":         s.stats.ReadCount,
		"writes":        s.stats.WriteCount,
		"deletes":       s.stats.DeleteCount,
		"scans":         s.stats.ScanCount,
		"rw_ratio":      s.stats.GetReadWriteRatio(),
		"hit_ratio":     s.stats.GetHitRatio(),
	}
}

// Close checkpoints unsaved changes and closes the snapshot database.
func (s *Store) Close() error {
	var err error
	if s.dirty {
		_, err = s.Checkpoint(context.Background())
	}
	return errors.CombineErrors(err, s.snapshots.Close())
}
