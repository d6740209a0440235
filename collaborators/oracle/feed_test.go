package oracle

import (
	"math/big"
	"testing"
)

func TestSetAndGetPrice(t *testing.T) {
	f := NewFeed()
	if err := f.SetPrice("A", big.NewInt(2_000_000_000), 9); err != nil {
		t.Fatalf("set price: %v", err)
	}
	price, decimals, err := f.GetPrice("A")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Cmp(big.NewInt(2_000_000_000)) != 0 || decimals != 9 {
		t.Fatalf("unexpected quote: %s decimals=%d", price, decimals)
	}
}

func TestGetPriceUnknownMarket(t *testing.T) {
	f := NewFeed()
	if _, _, err := f.GetPrice("missing"); err != ErrUnknownMarket {
		t.Fatalf("expected ErrUnknownMarket, got %v", err)
	}
}

func TestSetPriceRejectsZeroDecimals(t *testing.T) {
	f := NewFeed()
	if err := f.SetPrice("A", big.NewInt(1), 0); err != ErrInvalidDecimals {
		t.Fatalf("expected ErrInvalidDecimals, got %v", err)
	}
}

func TestSetPriceAllowsZeroPrice(t *testing.T) {
	f := NewFeed()
	if err := f.SetPrice("A", big.NewInt(0), 9); err != nil {
		t.Fatalf("expected zero price to be accepted by the feed: %v", err)
	}
	price, _, err := f.GetPrice("A")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Sign() != 0 {
		t.Fatalf("expected zero price, got %s", price)
	}
}

func TestSetPriceRejectsNegative(t *testing.T) {
	f := NewFeed()
	if err := f.SetPrice("A", big.NewInt(-1), 9); err != ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}
