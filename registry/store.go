package registry

import (
	"encoding/binary"
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
)

const (
	tableEntry = "entry"

	// indexID is the name index; go-memdb requires the primary index to be
	// called "id".
	indexID  = "id"
	indexSeq = "seq"
)

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableEntry: {
			Name: tableEntry,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: entryIndexerByName{},
				},
				indexSeq: {
					Name:    indexSeq,
					Unique:  true,
					Indexer: entryIndexerBySeq{},
				},
			},
		},
	},
}

// store is the ordered set of managed entries. Names are unique and
// iteration follows insertion order. All methods require the update lock.
type store struct {
	memDB   *memdb.MemDB
	nextSeq uint64
	count   int
}

func newStore() *store {
	memDB, err := memdb.NewMemDB(schema)
	if err != nil {
		// This shouldn't fail
		panic(err)
	}
	return &store{memDB: memDB}
}

func (s *store) len() int {
	return s.count
}

// get returns the entry called name, or nil.
func (s *store) get(name string) *Entry {
	tx := s.memDB.Txn(false)
	defer tx.Abort()

	obj, err := tx.First(tableEntry, indexID, name)
	if err != nil || obj == nil {
		return nil
	}
	return obj.(*Entry)
}

// create allocates an entry for name and inserts it at the tail.
func (s *store) create(name string) (*Entry, error) {
	tx := s.memDB.Txn(true)
	defer tx.Abort()

	existing, err := tx.First(tableEntry, indexID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateName
	}

	s.nextSeq++
	e := newEntry(name, s.nextSeq)
	if err := tx.Insert(tableEntry, e); err != nil {
		e.release()
		return nil, errors.Wrap(err, "failed to insert entry")
	}
	tx.Commit()
	s.count++
	return e, nil
}

// remove unlinks the entry called name from the store and returns it.
func (s *store) remove(name string) (*Entry, error) {
	tx := s.memDB.Txn(true)
	defer tx.Abort()

	obj, err := tx.First(tableEntry, indexID, name)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotFound
	}
	if err := tx.Delete(tableEntry, obj); err != nil {
		return nil, errors.Wrap(err, "failed to delete entry")
	}
	tx.Commit()
	s.count--
	return obj.(*Entry), nil
}

// clear removes every entry and returns them in insertion order.
func (s *store) clear() ([]*Entry, error) {
	tx := s.memDB.Txn(true)
	defer tx.Abort()

	entries, err := list(tx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := tx.Delete(tableEntry, e); err != nil {
			return nil, errors.Wrap(err, "failed to delete entry")
		}
	}
	tx.Commit()
	s.count = 0
	return entries, nil
}

// list returns all entries in insertion order.
func (s *store) list() ([]*Entry, error) {
	tx := s.memDB.Txn(false)
	defer tx.Abort()
	return list(tx)
}

func list(tx *memdb.Txn) ([]*Entry, error) {
	it, err := tx.Get(tableEntry, indexSeq)
	if err != nil {
		return nil, err
	}
	var entries []*Entry
	for obj := it.Next(); obj != nil; obj = it.Next() {
		entries = append(entries, obj.(*Entry))
	}
	return entries, nil
}

type entryIndexerByName struct{}

func (ei entryIndexerByName) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("must provide only a single argument")
	}
	arg, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("argument must be a string: %#v", args[0])
	}
	// Add the null character as a terminator
	return []byte(arg + "\x00"), nil
}

func (ei entryIndexerByName) FromObject(obj interface{}) (bool, []byte, error) {
	e := obj.(*Entry)
	return true, []byte(e.name + "\x00"), nil
}

type entryIndexerBySeq struct{}

// FromArgs with no arguments yields an empty prefix, matching every entry.
func (ei entryIndexerBySeq) FromArgs(args ...interface{}) ([]byte, error) {
	switch len(args) {
	case 0:
		return []byte{}, nil
	case 1:
		seq, ok := args[0].(uint64)
		if !ok {
			return nil, fmt.Errorf("argument must be a uint64: %#v", args[0])
		}
		return encodeSeq(seq), nil
	}
	return nil, fmt.Errorf("must provide at most one argument")
}

func (ei entryIndexerBySeq) FromObject(obj interface{}) (bool, []byte, error) {
	e := obj.(*Entry)
	return true, encodeSeq(e.seq), nil
}

// encodeSeq encodes big endian so that byte order matches numeric order.
func encodeSeq(seq uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return b[:]
}
