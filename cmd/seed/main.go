package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xtrntr/otc/internal/auth"
	"github.com/xtrntr/otc/internal/config"
	"github.com/xtrntr/otc/internal/db"
	"github.com/xtrntr/otc/internal/logger"
	"github.com/xtrntr/otc/internal/otc"
	"github.com/xtrntr/otc/internal/rates"
	"github.com/xtrntr/otc/internal/vault"
)

type assetEntry struct {
	Code   string `yaml:"code"`
	Handle string `yaml:"handle"`
}

// Seed the database with the admin account, demo traders, the underlying
// asset whitelist read from a YAML file, and starting balances for the
// demo traders.
func main() {
	logger.Init()
	ctx := context.Background()
	cfg := config.Load()

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(ctx)

	authService := auth.NewAuthService(database, cfg.JWTSecret)

	admin, err := authService.EnsureAccount(ctx, cfg.AdminUsername, cfg.AdminPassword, "admin")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to ensure admin account")
	}

	var traders []string
	for _, username := range []string{"trader1", "trader2"} {
		account, err := authService.EnsureAccount(ctx, username, "trader-pass", "trader")
		if err != nil {
			log.Fatal().Err(err).Str("username", username).Msg("failed to ensure trader account")
		}
		traders = append(traders, account.Address)
	}

	balances := vault.NewPostgres(database.Pool)
	engine := otc.New(otc.Options{
		Owner:  admin.Address,
		Vault:  balances,
		Rates:  rates.NewOracle(),
		Store:  database,
		Logger: log.Logger,
	})
	state, err := database.LoadState(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load engine state")
	}
	engine.Restore(state)

	data, err := os.ReadFile(cfg.AssetFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.AssetFile).Msg("failed to read asset file")
	}
	var entries []assetEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		log.Fatal().Err(err).Msg("failed to parse asset file")
	}

	var codes, handles []string
	for _, e := range entries {
		if engine.AssetCount() > 0 {
			if _, exists := lookup(engine, e.Code); exists {
				continue
			}
		}
		codes = append(codes, e.Code)
		handles = append(handles, e.Handle)
	}

	if len(codes) > 0 {
		if err := engine.AddAssets(ctx, admin.Address, codes, handles); err != nil {
			log.Fatal().Err(err).Msg("failed to add assets")
		}
		fmt.Printf("Seeded %d assets (admin address %s)\n", len(codes), admin.Address)
	} else {
		fmt.Println("All assets already registered.")
	}

	// Demo trading balances, minted once per trader and asset.
	stake := decimal.NewFromInt(1000)
	for _, e := range entries {
		for _, addr := range traders {
			bal, err := balances.Balance(ctx, e.Code, addr)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to read balance")
			}
			if bal.IsPositive() {
				continue
			}
			if err := balances.Mint(ctx, e.Code, addr, stake); err != nil {
				log.Fatal().Err(err).Str("asset", e.Code).Str("address", addr).Msg("failed to mint")
			}
			fmt.Printf("Funded %s with %s %s\n", addr, stake, e.Code)
		}
	}
}

func lookup(engine *otc.Engine, code string) (string, bool) {
	for _, a := range engine.Assets() {
		if a.Code == code {
			return a.Handle, true
		}
	}
	return "", false
}
