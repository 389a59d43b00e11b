//go:build tools
// +build tools

// Package main provides a configuration validation tool for the light-mining
// bot. It validates the config file and the wallets file it points at.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"takerminer/config"
	"takerminer/wallet"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: search paths)")
	walletsFile := flag.String("wallets", "", "Path to wallets file (default: wallets.file from config)")
	flag.Parse()

	fmt.Println("Validating Light-Mining Bot Configuration")
	fmt.Println("=========================================")
	fmt.Println()

	cfg, ok := validateConfig(*configFile)
	if !ok {
		os.Exit(1)
	}
	fmt.Println()

	path := *walletsFile
	if path == "" {
		path = cfg.Wallets.File
	}
	if !validateWallets(path) {
		os.Exit(1)
	}
}

func validateConfig(configPath string) (*config.Config, bool) {
	fmt.Println("Configuration")
	fmt.Println("-------------")

	if configPath == "" {
		configPath = findConfigFile("taker-config.yaml")
		if configPath == "" {
			fmt.Println("Status: ⚠️  No config file found (will use defaults)")
			fmt.Println("Search paths:")
			fmt.Println("  - ./taker-config.yaml")
			fmt.Println("  - ~/.taker/taker-config.yaml")
			fmt.Println("  - /etc/taker/taker-config.yaml")
		} else {
			fmt.Printf("File: %s\n", configPath)
		}
	} else {
		fmt.Printf("File: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Status: ❌ INVALID\n")
		fmt.Printf("Error: %v\n", err)
		return nil, false
	}

	fmt.Println("Status: ✅ VALID")
	fmt.Println()
	fmt.Println("Loaded Configuration:")
	fmt.Printf("  API Base URL:         %s\n", cfg.API.BaseURL)
	fmt.Printf("  Invitation Code:      %s\n", cfg.API.InvitationCode)
	fmt.Printf("  API Timeout:          %v\n", cfg.API.Timeout)
	fmt.Printf("  Chain RPC URL:        %s\n", cfg.Chain.RPCURL)
	fmt.Printf("  Contract Address:     %s\n", cfg.Chain.ContractAddress)
	fmt.Printf("  Confirm Timeout:      %v\n", cfg.Chain.ConfirmTimeout)
	fmt.Printf("  Wallets File:         %s\n", cfg.Wallets.File)
	fmt.Printf("  Logging:              %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)

	return cfg, true
}

func validateWallets(path string) bool {
	fmt.Println("Wallets")
	fmt.Println("-------")
	fmt.Printf("File: %s\n", path)

	records, err := wallet.Load(path)
	if err != nil {
		fmt.Printf("Status: ❌ INVALID\n")
		fmt.Printf("Error: %v\n", err)
		return false
	}

	valid := true
	for i, r := range records {
		if err := r.Validate(); err != nil {
			fmt.Printf("  #%d ❌ %v\n", i+1, err)
			valid = false
			continue
		}
		fmt.Printf("  #%d ✅ %s\n", i+1, r.Address)
	}

	if !valid {
		fmt.Printf("Status: ❌ INVALID\n")
		return false
	}
	fmt.Printf("Status: ✅ VALID (%d wallets)\n", len(records))
	return true
}

func findConfigFile(filename string) string {
	searchPaths := []string{
		filepath.Join(".", filename),
		filepath.Join(os.Getenv("HOME"), ".taker", filename),
		filepath.Join("/etc/taker", filename),
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
