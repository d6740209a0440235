package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"

	"whirlpool/lending"
)

// MarketSeed describes one market admitted at startup, combining the
// create_market admission parameters with its jump-rate curve and
// liquidation params (spec.md §6's create_market / set_interest_rate_data /
// update_liquidation inputs collapsed into one seed entry).
type MarketSeed struct {
	Key         string                     `toml:"key"`
	Config      lending.MarketConfig       `toml:"config"`
	Rates       lending.InterestRateParams `toml:"rates"`
	Liquidation LiquidationSeed            `toml:"liquidation"`
}

// LiquidationSeed mirrors lending.Liquidation with TOML tags.
type LiquidationSeed struct {
	PenaltyFee         *big.Int `toml:"penalty_fee"`
	ProtocolPercentage *big.Int `toml:"protocol_percentage"`
}

// Liquidation converts the seed entry to a lending.Liquidation.
func (l LiquidationSeed) Liquidation() lending.Liquidation {
	return lending.Liquidation{
		PenaltyFee:         l.PenaltyFee,
		ProtocolPercentage: l.ProtocolPercentage,
	}
}

// MarketSeedFile is the top-level shape of the TOML seed document: a list
// of markets admitted in file order at startup.
type MarketSeedFile struct {
	Markets []MarketSeed `toml:"markets"`
}

// LoadMarketSeed reads and parses the TOML market seed file at path.
func LoadMarketSeed(path string) (MarketSeedFile, error) {
	if path == "" {
		return MarketSeedFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return MarketSeedFile{}, fmt.Errorf("read market seed: %w", err)
	}
	var file MarketSeedFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return MarketSeedFile{}, fmt.Errorf("decode market seed: %w", err)
	}
	return file, nil
}
