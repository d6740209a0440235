// Package statestore is the in-process engineState implementation backing
// the lending engine (SPEC_FULL.md §4.13). It plays the role the teacher
// splits across core/state and native/lending's own persistence helpers,
// collapsed here into a single concurrency-safe in-memory store: one
// sync.RWMutex per market (keyed by MarketKey) guards that market's record,
// its accounts, and its vault balance, while a package-level mutex guards
// the ordered market_keys slice, the liquidation-params table, the
// markets_in index, and the global meta record.
package statestore

import (
	"errors"
	"math/big"
	"sync"

	"whirlpool/crypto"
	"whirlpool/lending"
)

// ErrUnknownMarket is returned by lookups keyed on a market that has never
// been created via CreateMarket.
var ErrUnknownMarket = errors.New("statestore: unknown market")

type marketSlot struct {
	mu       sync.RWMutex
	market   *lending.MarketData
	vault    *big.Int
	accounts map[string]*lending.Account
}

// Store is the lending engine's concrete state backend.
type Store struct {
	mu sync.Mutex

	slots       map[lending.MarketKey]*marketSlot
	marketKeys  []lending.MarketKey
	liquidation map[lending.MarketKey]*lending.Liquidation
	marketsIn   map[string]map[lending.MarketKey]struct{}
	meta        *lending.GlobalMeta
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		slots:       make(map[lending.MarketKey]*marketSlot),
		liquidation: make(map[lending.MarketKey]*lending.Liquidation),
		marketsIn:   make(map[string]map[lending.MarketKey]struct{}),
	}
}

func (s *Store) slot(key lending.MarketKey) *marketSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[key]
	if !ok {
		slot = &marketSlot{
			vault:    big.NewInt(0),
			accounts: make(map[string]*lending.Account),
		}
		s.slots[key] = slot
	}
	return slot
}

// GetMarket returns nil, nil for an unregistered market, matching the
// teacher's own GetMarket(string) (*Market, error) nil-miss convention.
func (s *Store) GetMarket(key lending.MarketKey) (*lending.MarketData, error) {
	slot := s.slot(key)
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	return slot.market.Clone(), nil
}

// PutMarket stores a deep copy so the caller's mutable reference never
// aliases the store's internal record.
func (s *Store) PutMarket(key lending.MarketKey, market *lending.MarketData) error {
	slot := s.slot(key)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.market = market.Clone()
	return nil
}

// MarketKeys returns the registration order of every admitted market.
func (s *Store) MarketKeys() ([]lending.MarketKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]lending.MarketKey, len(s.marketKeys))
	copy(out, s.marketKeys)
	return out, nil
}

// AppendMarketKey records key as admitted, ignoring duplicate admission.
func (s *Store) AppendMarketKey(key lending.MarketKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.marketKeys {
		if existing == key {
			return nil
		}
	}
	s.marketKeys = append(s.marketKeys, key)
	return nil
}

// GetLiquidation returns nil, nil when no liquidation params have been set.
func (s *Store) GetLiquidation(key lending.MarketKey) (*lending.Liquidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	params, ok := s.liquidation[key]
	if !ok {
		return nil, nil
	}
	clone := params.Clone()
	return &clone, nil
}

// PutLiquidation stores key's liquidation params.
func (s *Store) PutLiquidation(key lending.MarketKey, liquidation *lending.Liquidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := liquidation.Clone()
	s.liquidation[key] = &clone
	return nil
}

// GetVaultBalance returns key's vault balance, zero if never credited.
func (s *Store) GetVaultBalance(key lending.MarketKey) (*big.Int, error) {
	slot := s.slot(key)
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	return new(big.Int).Set(slot.vault), nil
}

// PutVaultBalance overwrites key's vault balance.
func (s *Store) PutVaultBalance(key lending.MarketKey, balance *big.Int) error {
	slot := s.slot(key)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.vault = new(big.Int).Set(balance)
	return nil
}

// GetAccount returns nil, nil if the user has never touched this market,
// matching the engine's own ensureAccount nil-check convention.
func (s *Store) GetAccount(key lending.MarketKey, addr crypto.Address) (*lending.Account, error) {
	slot := s.slot(key)
	slot.mu.RLock()
	defer slot.mu.RUnlock()
	account, ok := slot.accounts[addr.Key()]
	if !ok {
		return nil, nil
	}
	return account.Clone(), nil
}

// PutAccount stores a deep copy of the user's position in market key.
func (s *Store) PutAccount(key lending.MarketKey, addr crypto.Address, account *lending.Account) error {
	slot := s.slot(key)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	slot.accounts[addr.Key()] = account.Clone()
	return nil
}

// GetMarketsIn returns the set of markets addr has entered, empty if none.
func (s *Store) GetMarketsIn(addr crypto.Address) (map[lending.MarketKey]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.marketsIn[addr.Key()]
	out := make(map[lending.MarketKey]struct{}, len(existing))
	if ok {
		for k := range existing {
			out[k] = struct{}{}
		}
	}
	return out, nil
}

// PutMarketsIn overwrites addr's entered-markets set.
func (s *Store) PutMarketsIn(addr crypto.Address, keys map[lending.MarketKey]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := make(map[lending.MarketKey]struct{}, len(keys))
	for k := range keys {
		clone[k] = struct{}{}
	}
	s.marketsIn[addr.Key()] = clone
	return nil
}

// GetGlobalMeta returns nil, nil before the first PutGlobalMeta, letting the
// engine lazily default it (engine.go's globalMeta helper).
func (s *Store) GetGlobalMeta() (*lending.GlobalMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return nil, nil
	}
	clone := *s.meta
	clone.TotalAllocationPoints = new(big.Int).Set(s.meta.TotalAllocationPoints)
	clone.RewardsPerTick = new(big.Int).Set(s.meta.RewardsPerTick)
	return &clone, nil
}

// PutGlobalMeta overwrites the global meta record.
func (s *Store) PutGlobalMeta(meta *lending.GlobalMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *meta
	clone.TotalAllocationPoints = new(big.Int).Set(meta.TotalAllocationPoints)
	clone.RewardsPerTick = new(big.Int).Set(meta.RewardsPerTick)
	s.meta = &clone
	return nil
}
