package mempool

import (
	"bytes"
	"encoding/gob"
	"errors"
	"testing"
)

func TestAddTransactionRejectsDuplicatesAndEmpty(t *testing.T) {
	mp := New(10)
	if err := mp.AddTransaction([]byte("tx-1")); err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if err := mp.AddTransaction([]byte("tx-1")); !errors.Is(err, ErrTransactionExists) {
		t.Fatalf("AddTransaction() duplicate error = %v, want ErrTransactionExists", err)
	}
	if err := mp.AddTransaction(nil); !errors.Is(err, ErrInvalidTransaction) {
		t.Fatalf("AddTransaction(nil) error = %v, want ErrInvalidTransaction", err)
	}
}

func TestAddTransactionRejectsBeyondCapacity(t *testing.T) {
	mp := New(1)
	if err := mp.AddTransaction([]byte("tx-1")); err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if err := mp.AddTransaction([]byte("tx-2")); !errors.Is(err, ErrMempoolCapacityFull) {
		t.Fatalf("AddTransaction() over-capacity error = %v, want ErrMempoolCapacityFull", err)
	}
}

func TestNextPayloadPacksOldestFirstWithinBudget(t *testing.T) {
	mp := New(10)
	mp.AddTransaction([]byte("aaaa"))
	mp.AddTransaction([]byte("bbbb"))
	mp.AddTransaction([]byte("cccc"))

	payload := mp.NextPayload(9)
	var batch [][]byte
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&batch); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(batch))
	}
	if string(batch[0]) != "aaaa" || string(batch[1]) != "bbbb" {
		t.Fatalf("batch = %q, want [aaaa bbbb] in FIFO order", batch)
	}
}

func TestNextPayloadEmptyWhenPoolEmpty(t *testing.T) {
	mp := New(10)
	if payload := mp.NextPayload(1024); payload != nil {
		t.Fatalf("NextPayload() on empty pool = %v, want nil", payload)
	}
}

func TestRemoveTransactionsEvictsAndReordersCleanly(t *testing.T) {
	mp := New(10)
	mp.AddTransaction([]byte("tx-1"))
	mp.AddTransaction([]byte("tx-2"))
	mp.AddTransaction([]byte("tx-3"))

	mp.RemoveTransactions([][]byte{[]byte("tx-2")})
	if mp.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", mp.Size())
	}

	payload := mp.NextPayload(1024)
	var batch [][]byte
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&batch); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if len(batch) != 2 || string(batch[0]) != "tx-1" || string(batch[1]) != "tx-3" {
		t.Fatalf("batch = %q, want [tx-1 tx-3] with tx-2 evicted", batch)
	}
}
