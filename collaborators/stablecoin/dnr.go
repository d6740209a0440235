// Package stablecoin is the reference implementation of the protocol's
// synthetic stable asset (DNR): a debt-only market whose interest rate is a
// constant set by governance rather than looked up from the jump-rate
// model. Spec.md §4.6/§6 place DNR's mint/burn primitives out of the
// engine's core scope; this package is the in-process collaborator.
package stablecoin

import (
	"errors"
	"math/big"
	"sync"

	"whirlpool/crypto"
)

// ErrInvalidAmount is returned by Mint/Burn when amount is non-positive.
var ErrInvalidAmount = errors.New("stablecoin: amount must be positive")

// ErrInsufficientSupply is returned by Burn when more is burned than is
// outstanding for the address.
var ErrInsufficientSupply = errors.New("stablecoin: burn exceeds outstanding balance")

// Module tracks outstanding DNR supply and the governance-set interest
// rate per tick.
type Module struct {
	mu              sync.Mutex
	balances        map[string]*big.Int
	totalSupply     *big.Int
	interestPerTick *big.Int
}

// NewModule constructs a DNR module seeded with an initial rate per tick
// (Mantissa-scaled fraction).
func NewModule(initialRatePerTick *big.Int) *Module {
	rate := big.NewInt(0)
	if initialRatePerTick != nil {
		rate = new(big.Int).Set(initialRatePerTick)
	}
	return &Module{
		balances:        make(map[string]*big.Int),
		totalSupply:     big.NewInt(0),
		interestPerTick: rate,
	}
}

// Mint issues amount of fresh DNR to addr, mirroring mint(storage, amount)
// -> Coin<DNR>.
func (m *Module) Mint(addr crypto.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := addr.Key()
	balance, ok := m.balances[key]
	if !ok {
		balance = big.NewInt(0)
	}
	m.balances[key] = new(big.Int).Add(balance, amount)
	m.totalSupply = new(big.Int).Add(m.totalSupply, amount)
	return new(big.Int).Set(amount), nil
}

// Burn destroys amount of DNR attributed to addr, mirroring
// burn(storage, coins).
func (m *Module) Burn(addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := addr.Key()
	balance, ok := m.balances[key]
	if !ok || balance.Cmp(amount) < 0 {
		return ErrInsufficientSupply
	}
	m.balances[key] = new(big.Int).Sub(balance, amount)
	m.totalSupply = new(big.Int).Sub(m.totalSupply, amount)
	return nil
}

// InterestRatePerTick returns the current governance-set DNR borrow rate,
// mirroring get_interest_rate_per_tick.
func (m *Module) InterestRatePerTick() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.interestPerTick)
}

// SetInterestRatePerTick updates the governance-set DNR borrow rate,
// mirroring update_interest_rate_per_tick.
func (m *Module) SetInterestRatePerTick(rate *big.Int) error {
	if rate == nil || rate.Sign() < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interestPerTick = new(big.Int).Set(rate)
	return nil
}

// BalanceOf returns the outstanding DNR attributed to addr.
func (m *Module) BalanceOf(addr crypto.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[addr.Key()]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(balance)
}

// TotalSupply returns the total outstanding DNR across all addresses.
func (m *Module) TotalSupply() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.totalSupply)
}
