package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// errInterrupted marks ops that were still pending when a snapshot was taken.
const errInterrupted = "interrupted before the server answered"

// SaveSnapshot writes the current state to w as msgpack.
func (s *Store) SaveSnapshot(w io.Writer) error {
	st := s.Snapshot()
	if err := msgpack.NewEncoder(w).Encode(&st); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot replaces the state with one written by SaveSnapshot. Ops that
// were pending are marked failed and rows they created locally are dropped;
// the next Refresh reconciles everything else.
func (s *Store) LoadSnapshot(r io.Reader) error {
	var st State
	if err := msgpack.NewDecoder(r).Decode(&st); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	isLocal := func(id string) bool { return strings.HasPrefix(id, localIDPrefix) }
	st.Accounts = slices.DeleteFunc(st.Accounts, func(a domain.Account) bool { return isLocal(a.ID) })
	st.Transactions = slices.DeleteFunc(st.Transactions, func(t domain.Transaction) bool { return isLocal(t.ID) })

	ops := make([]*PendingOp, 0, len(st.Ops))
	for i := range st.Ops {
		op := st.Ops[i]
		if op.Status == OpPending {
			op.Status = OpFailed
			op.Error = errInterrupted
		}
		ops = append(ops, &op)
	}

	s.mu.Lock()
	if len(s.pending) > 0 {
		s.mu.Unlock()
		return fmt.Errorf("cannot load snapshot with %d mutations in flight", len(s.pending))
	}
	s.state = State{SyncedAt: st.SyncedAt, Accounts: st.Accounts, Transactions: st.Transactions}
	s.ops = ops
	s.mu.Unlock()

	s.notify()
	s.log.Info().
		Int("accounts", len(st.Accounts)).
		Int("transactions", len(st.Transactions)).
		Time("synced_at", st.SyncedAt).
		Msg("Loaded snapshot")
	return nil
}

// SaveSnapshotFile writes the snapshot to path through a temp file and rename.
func (s *Store) SaveSnapshotFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.SaveSnapshot(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadSnapshotFile loads a snapshot saved by SaveSnapshotFile.
func (s *Store) LoadSnapshotFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.LoadSnapshot(f)
}
