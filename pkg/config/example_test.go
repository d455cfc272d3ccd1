package config_test

import (
	"fmt"

	"github.com/wonny/threes/backend/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	// Access configuration values
	fmt.Printf("Universe: %s (%d)\n", cfg.Universe.Source, cfg.Universe.Size)
	fmt.Printf("Reasoning: %s\n", cfg.Reasoning.Provider)
	fmt.Printf("Max positions: %d\n", cfg.Pipeline.MaxPortfolioStocks)
}
