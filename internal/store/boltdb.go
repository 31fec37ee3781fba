package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bDetections = []byte("detections")
	bPoints     = []byte("points")
)

// maxPoints caps the raw sample bucket so the database stays bounded.
const maxPoints = 10000

type Store struct{ db *bolt.DB }

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, e := tx.CreateBucketIfNotExists(bDetections); e != nil {
			return e
		}
		if _, e := tx.CreateBucketIfNotExists(bPoints); e != nil {
			return e
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Detection is one anomaly verdict, attributed to the detector that
// produced it. Only detections are persisted, never detector state.
type Detection struct {
	When      time.Time `json:"when"`
	Detector  string    `json:"detector"`
	Value     float64   `json:"value"`
	TimeIndex float64   `json:"timeIndex"`
}

func (s *Store) PutDetection(d Detection) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bDetections)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		j, _ := json.Marshal(d)
		return b.Put(u64key(seq), j)
	})
}

// ListDetections returns the most recent detections, newest first.
func (s *Store) ListDetections(limit int) ([]Detection, error) {
	out := []Detection{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bDetections).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var d Detection
			if json.Unmarshal(v, &d) == nil {
				out = append(out, d)
				if limit > 0 && len(out) >= limit {
					break
				}
			}
		}
		return nil
	})
	return out, err
}

// Sample is one raw stream point with its classification per detector.
type Sample struct {
	When      time.Time       `json:"when"`
	Value     float64         `json:"value"`
	TimeIndex float64         `json:"timeIndex"`
	Verdicts  map[string]bool `json:"verdicts"`
}

func (s *Store) PutSample(sm Sample) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bPoints)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		j, _ := json.Marshal(sm)
		if err := b.Put(u64key(seq), j); err != nil {
			return err
		}
		// Keys are sequential, so evicting seq-maxPoints keeps the
		// bucket at capacity.
		if seq > maxPoints {
			return b.Delete(u64key(seq - maxPoints))
		}
		return nil
	})
}

// ListSamples returns the most recent stream samples, newest first.
func (s *Store) ListSamples(limit int) ([]Sample, error) {
	out := []Sample{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bPoints).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var sm Sample
			if json.Unmarshal(v, &sm) == nil {
				out = append(out, sm)
				if limit > 0 && len(out) >= limit {
					break
				}
			}
		}
		return nil
	})
	return out, err
}

// IterateSamples walks all retained samples oldest first, stopping when
// fn returns false.
func (s *Store) IterateSamples(fn func(sm Sample) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bPoints).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var sm Sample
			if json.Unmarshal(v, &sm) != nil {
				continue
			}
			if !fn(sm) {
				break
			}
		}
		return nil
	})
}

func u64key(v uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, v)
	return k
}
