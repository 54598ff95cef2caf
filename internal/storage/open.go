package storage

import "fmt"

// Supported on-disk backends.
const (
	BackendBadger  = "badger"
	BackendLevelDB = "leveldb"
)

// Open opens the named on-disk backend at path.
func Open(backend, path string) (DB, error) {
	var (
		db  DB
		err error
	)
	switch backend {
	case BackendBadger:
		db, err = NewBadger(path)
	case BackendLevelDB:
		db, err = NewLevelDB(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}
