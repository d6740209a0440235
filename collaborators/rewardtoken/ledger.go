// Package rewardtoken is the reference implementation of the protocol
// reward token (IPX) consumed by the lending engine via mint/zero. Spec.md
// §1 places the token's mint/burn primitives out of the engine's core
// scope; this package is the in-process collaborator that lets the engine
// run end-to-end without a production token runtime underneath it.
package rewardtoken

import (
	"errors"
	"math/big"
	"sync"

	"whirlpool/crypto"
)

// ErrInvalidAmount is returned by Mint when the requested amount is negative.
var ErrInvalidAmount = errors.New("rewardtoken: amount must be non-negative")

// Ledger tracks minted IPX balances per address. It is the engine's
// RewardMinter collaborator.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	minted   *big.Int
}

// NewLedger constructs an empty reward-token ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[string]*big.Int),
		minted:   big.NewInt(0),
	}
}

// Mint credits amount to addr's balance and returns the minted amount as a
// fresh coin value, mirroring mint(storage, amount) -> Coin<IPX>.
func (l *Ledger) Mint(addr crypto.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	out := new(big.Int).Set(amount)
	if amount.Sign() == 0 {
		return out, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := addr.Key()
	balance, ok := l.balances[key]
	if !ok {
		balance = big.NewInt(0)
	}
	l.balances[key] = new(big.Int).Add(balance, amount)
	l.minted = new(big.Int).Add(l.minted, amount)
	return out, nil
}

// Zero returns the zero-value coin, mirroring zero() -> Coin<IPX>.
func (l *Ledger) Zero() *big.Int {
	return big.NewInt(0)
}

// BalanceOf returns the current minted balance tracked for addr.
func (l *Ledger) BalanceOf(addr crypto.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, ok := l.balances[addr.Key()]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(balance)
}

// TotalMinted returns the cumulative amount minted across all addresses.
func (l *Ledger) TotalMinted() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.minted)
}
