package transfer

import (
	"encoding/binary"
	"fmt"
	"sync"

	"ArenaVault/internal/ledger"
	"ArenaVault/internal/storage"
)

// Storage key prefixes for balances.
var (
	accountKeyPrefix = []byte("b:") // "b:" + principal + asset → u64 balance
	custodyKeyPrefix = []byte("c:") // "c:" + asset → u64 custody balance
)

// Bank is the in-process value transfer port: it tracks per-principal
// asset balances and the ledger's custody pool in the same storage as
// the session records. Each Deposit/Release is a single atomic batch,
// so the enclosing ledger operation either sees the full transfer or
// none of it. A bank-wide mutex serializes every read-modify-write, so
// concurrent transfers never lose updates.
type Bank struct {
	db *storage.Storage

	mu sync.Mutex
}

// NewBank creates a bank over the given storage.
func NewBank(db *storage.Storage) *Bank {
	return &Bank{db: db}
}

// Deposit moves amount of asset from the principal's account into
// custody. Fails without mutation when the account cannot cover it.
func (b *Bank) Deposit(from ledger.Principal, asset ledger.AssetID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	balance, err := b.readBalance(accountKey(from, asset))
	if err != nil {
		return err
	}

	if balance < amount {
		return fmt.Errorf("account %s holds %d of asset %s, deposit needs %d", from, balance, asset, amount)
	}

	held, err := b.readBalance(custodyKey(asset))
	if err != nil {
		return err
	}

	newHeld, err := safeAdd(held, amount)
	if err != nil {
		return fmt.Errorf("custody credit:\n%w", err)
	}

	return b.db.SetBatch([]storage.KeyValue{
		{Key: accountKey(from, asset), Value: encodeBalance(balance - amount)},
		{Key: custodyKey(asset), Value: encodeBalance(newHeld)},
	})
}

// Release moves amount of asset from custody to the principal's account.
// Fails without mutation when custody cannot cover it.
func (b *Bank) Release(to ledger.Principal, asset ledger.AssetID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	held, err := b.readBalance(custodyKey(asset))
	if err != nil {
		return err
	}

	if held < amount {
		return fmt.Errorf("custody holds %d of asset %s, release needs %d", held, asset, amount)
	}

	balance, err := b.readBalance(accountKey(to, asset))
	if err != nil {
		return err
	}

	newBalance, err := safeAdd(balance, amount)
	if err != nil {
		return fmt.Errorf("account credit:\n%w", err)
	}

	return b.db.SetBatch([]storage.KeyValue{
		{Key: custodyKey(asset), Value: encodeBalance(held - amount)},
		{Key: accountKey(to, asset), Value: encodeBalance(newBalance)},
	})
}

// Balance returns the principal's balance of the given asset.
func (b *Bank) Balance(p ledger.Principal, asset ledger.AssetID) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.readBalance(accountKey(p, asset))
}

// CustodyBalance returns the amount of asset held in custody.
func (b *Bank) CustodyBalance(asset ledger.AssetID) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.readBalance(custodyKey(asset))
}

// Mint credits an account directly, outside any custody flow. Used to
// seed balances at bootstrap.
func (b *Bank) Mint(to ledger.Principal, asset ledger.AssetID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	balance, err := b.readBalance(accountKey(to, asset))
	if err != nil {
		return err
	}

	newBalance, err := safeAdd(balance, amount)
	if err != nil {
		return fmt.Errorf("mint:\n%w", err)
	}

	return b.db.Set(accountKey(to, asset), encodeBalance(newBalance))
}

// FundCustody credits the custody pool directly. Reward pools are funded
// out of band; entry deposits alone do not back rewards.
func (b *Bank) FundCustody(asset ledger.AssetID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	held, err := b.readBalance(custodyKey(asset))
	if err != nil {
		return err
	}

	newHeld, err := safeAdd(held, amount)
	if err != nil {
		return fmt.Errorf("fund custody:\n%w", err)
	}

	return b.db.Set(custodyKey(asset), encodeBalance(newHeld))
}

// readBalance reads a u64 balance, treating a missing key as zero.
func (b *Bank) readBalance(key []byte) (uint64, error) {
	data, err := b.db.Get(key)
	if err != nil {
		return 0, err
	}

	if len(data) != 8 {
		return 0, nil
	}

	return binary.LittleEndian.Uint64(data), nil
}

// safeAdd returns a + b, failing on overflow instead of wrapping.
func safeAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("balance overflow: %d + %d wraps", a, b)
	}

	return sum, nil
}

// encodeBalance serializes a u64 balance (little-endian).
func encodeBalance(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)

	return buf
}

// accountKey builds the key for a principal's asset balance.
func accountKey(p ledger.Principal, asset ledger.AssetID) []byte {
	key := make([]byte, 0, len(accountKeyPrefix)+64)
	key = append(key, accountKeyPrefix...)
	key = append(key, p[:]...)
	key = append(key, asset[:]...)

	return key
}

// custodyKey builds the key for an asset's custody balance.
func custodyKey(asset ledger.AssetID) []byte {
	key := make([]byte, 0, len(custodyKeyPrefix)+32)
	key = append(key, custodyKeyPrefix...)
	key = append(key, asset[:]...)

	return key
}
