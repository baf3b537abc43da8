package journal

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/cleancurrents/annotation-worker/pkg/types"
)

var (
	// Bucket names
	bucketRuns        = []byte("runs")
	bucketTransitions = []byte("transitions")
	bucketStages      = []byte("stages")
)

// BoltStore implements Store using BoltDB. The journal lives on the boot
// disk so a failed run can be inspected from the disk snapshot even after
// the instance deleted itself.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed journal under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "worker-journal.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketTransitions, bucketStages} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CreateRun stores a new run record.
func (s *BoltStore) CreateRun(run *types.RunRecord) error {
	return s.putJSON(bucketRuns, []byte(run.ID), run)
}

// UpdateRun overwrites an existing run record.
func (s *BoltStore) UpdateRun(run *types.RunRecord) error {
	return s.putJSON(bucketRuns, []byte(run.ID), run)
}

// GetRun fetches a run record by ID.
func (s *BoltStore) GetRun(id string) (*types.RunRecord, error) {
	var run types.RunRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("run %s not found", id)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all journaled runs.
func (s *BoltStore) ListRuns() ([]*types.RunRecord, error) {
	var runs []*types.RunRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(_, v []byte) error {
			var run types.RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// AppendTransition stores one state transition, keyed by run and sequence
// so iteration order matches transition order.
func (s *BoltStore) AppendTransition(tr *types.TransitionRecord) error {
	key := fmt.Sprintf("%s/%08d", tr.RunID, tr.Seq)
	return s.putJSON(bucketTransitions, []byte(key), tr)
}

// ListTransitions returns a run's transitions in order.
func (s *BoltStore) ListTransitions(runID string) ([]*types.TransitionRecord, error) {
	var trs []*types.TransitionRecord
	err := s.scanPrefix(bucketTransitions, runID+"/", func(v []byte) error {
		var tr types.TransitionRecord
		if err := json.Unmarshal(v, &tr); err != nil {
			return err
		}
		trs = append(trs, &tr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trs, nil
}

// AppendStage stores one stage outcome, keyed by run and stage index.
func (s *BoltStore) AppendStage(sr *types.StageRecord) error {
	key := fmt.Sprintf("%s/%08d", sr.RunID, sr.Index)
	return s.putJSON(bucketStages, []byte(key), sr)
}

// ListStages returns a run's stage outcomes in pipeline order.
func (s *BoltStore) ListStages(runID string) ([]*types.StageRecord, error) {
	var srs []*types.StageRecord
	err := s.scanPrefix(bucketStages, runID+"/", func(v []byte) error {
		var sr types.StageRecord
		if err := json.Unmarshal(v, &sr); err != nil {
			return err
		}
		srs = append(srs, &sr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return srs, nil
}

func (s *BoltStore) putJSON(bucket, key []byte, v interface{}) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put(key, data)
	})
}

func (s *BoltStore) scanPrefix(bucket []byte, prefix string, fn func(v []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	})
}
