package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	casePrefix  = []byte("case:")
	sequenceKey = []byte("seq:case")
)

// BadgerOptions configures a BadgerStore.
type BadgerOptions struct {
	// Dir holds the data files. Required unless InMemory is set.
	Dir      string
	InMemory bool
	Logger   *slog.Logger
}

// BadgerStore keeps msgpack-encoded cases in an embedded Badger database.
// Ordering and statistics are computed in memory on read.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenBadger opens the store described by opts.
func OpenBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger store requires a directory")
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger: opts.Logger})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	seq, err := db.GetSequence(sequenceKey, 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open case sequence: %w", err)
	}

	return &BadgerStore{db: db, seq: seq}, nil
}

func caseKey(id string) []byte {
	return append(append([]byte{}, casePrefix...), id...)
}

// Create stores c under a fresh sequence number.
func (s *BadgerStore) Create(_ context.Context, c *Case) error {
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}
	c.Seq = n + 1

	data, err := msgpack.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode patient %s: %w", c.ID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(caseKey(c.ID))
		switch {
		case err == nil:
			return fmt.Errorf("failed to insert patient %s: %w", c.ID, ErrDuplicateID)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(caseKey(c.ID), data)
	})
}

// List returns cases in queue order.
func (s *BadgerStore) List(_ context.Context, status Status) ([]Case, error) {
	cases := []Case{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: casePrefix})
		defer it.Close()

		for it.Seek(casePrefix); it.ValidForPrefix(casePrefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var c Case
			if err := msgpack.Unmarshal(val, &c); err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}
			if status == "" || c.Status == status {
				cases = append(cases, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	SortCases(cases, status != "")
	return cases, nil
}

// Get returns the case with id.
func (s *BadgerStore) Get(_ context.Context, id string) (*Case, error) {
	var c Case
	err := s.db.View(func(txn *badger.Txn) error {
		return getCase(txn, id, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus applies u inside one read-write transaction.
func (s *BadgerStore) UpdateStatus(_ context.Context, id string, u Update) (*Case, error) {
	var c Case
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getCase(txn, id, &c); err != nil {
			return err
		}
		u.Apply(&c)

		data, err := msgpack.Marshal(&c)
		if err != nil {
			return fmt.Errorf("failed to encode patient %s: %w", id, err)
		}
		return txn.Set(caseKey(id), data)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes the case with id.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(caseKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(caseKey(id))
	})
}

// Stats counts over a full scan.
func (s *BadgerStore) Stats(ctx context.Context) (Stats, error) {
	cases, err := s.List(ctx, "")
	if err != nil {
		return newStats(), err
	}
	return ComputeStats(cases), nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to release sequence: %w", err)
	}
	return s.db.Close()
}

func getCase(txn *badger.Txn, id string, c *Case) error {
	item, err := txn.Get(caseKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(val, c)
}

// badgerLogger forwards warnings and errors to slog and drops the chatty
// info and debug output.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Error(fmt.Sprintf(f, v...), slog.String("component", "badger"))
	}
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Warn(fmt.Sprintf(f, v...), slog.String("component", "badger"))
	}
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
