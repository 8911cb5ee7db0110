package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/MrKriegler/insurance-lifecycle/internal/middleware"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/config"
	"github.com/MrKriegler/insurance-lifecycle/internal/platform/logging"
	"github.com/MrKriegler/insurance-lifecycle/internal/store"
)

func main() {
	tokenFor := flag.String("token", "", "also print a bearer token for this user")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed token")
	flag.Parse()

	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)

	if cfg.DBType == "memory" {
		log.Warn("DB_TYPE=memory: seeded packages vanish when this process exits")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repos, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer repos.Close(context.Background())

	log.Info("seeding packages")
	if err := seedPackages(ctx, repos.Packages, log); err != nil {
		log.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	log.Info("done seeding")

	if *tokenFor != "" {
		auth, err := middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			log.Error("authenticator", "err", err)
			os.Exit(1)
		}
		tok, err := auth.IssueToken(*tokenFor, *tokenTTL)
		if err != nil {
			log.Error("issue token", "err", err)
			os.Exit(1)
		}
		fmt.Println(tok)
	}
}

func seedPackages(ctx context.Context, repo core.PackageRepo, log *slog.Logger) error {
	for _, p := range catalog() {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("package %s: %w", p.Slug, err)
		}
		if err := repo.UpsertBySlug(ctx, p); err != nil {
			return fmt.Errorf("upsert %s: %w", p.Slug, err)
		}
		log.Info("package upserted", "slug", p.Slug)
	}
	return nil
}

func catalog() []core.Package {
	d := decimal.RequireFromString
	return []core.Package{
		{
			Slug:                 "travel-basic",
			Name:                 "Travel Basic",
			CategoryID:           "travel",
			UnitSize:             d("1000"),
			RatePerUnit:          d("5"),
			MinCoverage:          d("1000"),
			VATRatePercent:       d("10"),
			DiscountRatePercent:  d("0"),
			PartnerCode:          "DP",
			InsuranceCompanyCode: "IN",
			Channel:              core.ChannelB2C,
		},
		{
			Slug:                 "travel-plus",
			Name:                 "Travel Plus",
			CategoryID:           "travel",
			UnitSize:             d("1000"),
			RatePerUnit:          d("7.5"),
			MinCoverage:          d("5000"),
			VATRatePercent:       d("10"),
			DiscountRatePercent:  d("5"),
			PartnerCode:          "DP",
			InsuranceCompanyCode: "IN",
			Channel:              core.ChannelB2C,
		},
		{
			Slug:                 "travel-family",
			Name:                 "Travel Family",
			CategoryID:           "travel",
			UnitSize:             d("2500"),
			RatePerUnit:          d("15"),
			MinCoverage:          d("10000"),
			VATRatePercent:       d("10"),
			DiscountRatePercent:  d("10"),
			PartnerCode:          "DP",
			InsuranceCompanyCode: "IN",
			Channel:              core.ChannelB2C,
		},
		{
			Slug:                 "travel-corporate",
			Name:                 "Corporate Travel",
			CategoryID:           "travel",
			UnitSize:             d("5000"),
			RatePerUnit:          d("20"),
			MinCoverage:          d("50000"),
			VATRatePercent:       d("10"),
			DiscountRatePercent:  d("15"),
			PartnerCode:          "CP",
			InsuranceCompanyCode: "IN",
			Channel:              core.ChannelB2B,
		},
	}
}
