// Package basic is the seam a future query executor would sit behind. It
// does not parse SQL, plan, or execute joins/aggregates — those remain
// explicitly out of scope — but it bundles the buffer-pool-backed hash
// index and the lock manager into the row-level Get/Insert/Delete
// operations any executor above it would call.
package basic

import (
	"github.com/zhukovaskychina/xmysql-server/server/innodb/hashindex"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/manager"
)

// RowStore is the minimal interface an executor needs against a single
// hash-indexed row store: point lookup, insert, and delete, each
// performed under a caller-supplied transaction's row locks.
type RowStore interface {
	Get(txn *manager.Transaction, key uint32) ([]hashindex.RID, error)
	Insert(txn *manager.Transaction, key uint32, value hashindex.RID) error
	Delete(txn *manager.Transaction, key uint32, value hashindex.RID) error
}

// PessimisticRowStore is the concrete RowStore: every operation takes the
// row's lock (shared for reads, exclusive for writes) through a
// LockManager before touching the underlying ExtendibleHashTable, and
// never releases it — release is the caller's job at commit/abort, via
// the same LockManager and the row ids recorded on the Transaction.
type PessimisticRowStore struct {
	index *hashindex.ExtendibleHashTable
	locks *manager.LockManager
}

func NewPessimisticRowStore(index *hashindex.ExtendibleHashTable, locks *manager.LockManager) *PessimisticRowStore {
	return &PessimisticRowStore{index: index, locks: locks}
}

func (s *PessimisticRowStore) Get(txn *manager.Transaction, key uint32) ([]hashindex.RID, error) {
	if err := s.locks.LockShared(txn, manager.RowID(key)); err != nil {
		return nil, err
	}
	return s.index.GetValue(key)
}

func (s *PessimisticRowStore) Insert(txn *manager.Transaction, key uint32, value hashindex.RID) error {
	if err := s.locks.LockExclusive(txn, manager.RowID(key)); err != nil {
		return err
	}
	_, err := s.index.Insert(key, value)
	return err
}

func (s *PessimisticRowStore) Delete(txn *manager.Transaction, key uint32, value hashindex.RID) error {
	if err := s.locks.LockExclusive(txn, manager.RowID(key)); err != nil {
		return err
	}
	_, err := s.index.Remove(key, value)
	return err
}
