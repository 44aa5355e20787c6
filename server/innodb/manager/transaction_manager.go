package manager

import (
	"sync"
	"sync/atomic"
)

// Transaction is a narrow state machine: an id, an
// isolation level, a two-phase-locking state, and the sets of rows it
// currently S- and X-locks. It carries no MVCC machinery (no ReadView, no
// undo/redo logs) — the lock manager and
// its wound-wait rule are the only concurrency-control mechanism in scope
// here.
type Transaction struct {
	ID        int64
	Isolation IsolationLevel

	mu     sync.Mutex
	state  TxnState
	sLocks map[RowID]struct{}
	xLocks map[RowID]struct{}
}

func newTransaction(id int64, isolation IsolationLevel) *Transaction {
	return &Transaction{
		ID:        id,
		Isolation: isolation,
		state:     TxnGrowing,
		sLocks:    make(map[RowID]struct{}),
		xLocks:    make(map[RowID]struct{}),
	}
}

func (t *Transaction) State() TxnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(s TxnState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Transaction) HasSharedLock(row RowID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sLocks[row]
	return ok
}

func (t *Transaction) HasExclusiveLock(row RowID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.xLocks[row]
	return ok
}

func (t *Transaction) addSharedLock(row RowID) {
	t.mu.Lock()
	t.sLocks[row] = struct{}{}
	t.mu.Unlock()
}

func (t *Transaction) addExclusiveLock(row RowID) {
	t.mu.Lock()
	t.xLocks[row] = struct{}{}
	t.mu.Unlock()
}

func (t *Transaction) upgradeToExclusive(row RowID) {
	t.mu.Lock()
	delete(t.sLocks, row)
	t.xLocks[row] = struct{}{}
	t.mu.Unlock()
}

func (t *Transaction) dropLocks(row RowID) {
	t.mu.Lock()
	delete(t.sLocks, row)
	delete(t.xLocks, row)
	t.mu.Unlock()
}

// SharedRows and ExclusiveRows return snapshots of the rows currently held,
// for callers that need to release everything on commit/abort.
func (t *Transaction) SharedRows() []RowID {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := make([]RowID, 0, len(t.sLocks))
	for r := range t.sLocks {
		rows = append(rows, r)
	}
	return rows
}

func (t *Transaction) ExclusiveRows() []RowID {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := make([]RowID, 0, len(t.xLocks))
	for r := range t.xLocks {
		rows = append(rows, r)
	}
	return rows
}

// TransactionManager hands out monotonically increasing transaction ids —
// lower id means older, which is the only fact the lock manager's
// wound-wait rule needs — and tracks each transaction until Forget drops
// it; Commit and Abort only change its state.
type TransactionManager struct {
	mu     sync.RWMutex
	nextID int64
	txns   map[int64]*Transaction
}

func NewTransactionManager() *TransactionManager {
	return &TransactionManager{
		txns: make(map[int64]*Transaction),
	}
}

// Begin starts a new transaction at the given isolation level, entering
// GROWING, the start of the two-phase locking lifecycle.
func (tm *TransactionManager) Begin(isolation IsolationLevel) *Transaction {
	id := atomic.AddInt64(&tm.nextID, 1)
	txn := newTransaction(id, isolation)

	tm.mu.Lock()
	tm.txns[id] = txn
	tm.mu.Unlock()

	return txn
}

// Get looks up a transaction by id.
func (tm *TransactionManager) Get(id int64) (*Transaction, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	txn, ok := tm.txns[id]
	return txn, ok
}

// Commit marks txn COMMITTED. Callers are expected to have already
// released its locks through the lock manager's Unlock.
func (tm *TransactionManager) Commit(txn *Transaction) {
	txn.setState(TxnCommitted)
}

// Abort marks txn ABORTED. A transaction wounded by the lock manager is
// already in this state; this is for callers aborting voluntarily.
func (tm *TransactionManager) Abort(txn *Transaction) {
	txn.setState(TxnAborted)
}

// Forget drops bookkeeping for a terminated transaction.
func (tm *TransactionManager) Forget(id int64) {
	tm.mu.Lock()
	delete(tm.txns, id)
	tm.mu.Unlock()
}
