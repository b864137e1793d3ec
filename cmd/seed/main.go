package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dukerupert/weddingbell/internal/config"
	"github.com/dukerupert/weddingbell/internal/database"
	"github.com/dukerupert/weddingbell/internal/logging"
	"github.com/dukerupert/weddingbell/internal/seed"
	"github.com/dukerupert/weddingbell/internal/store"
)

func main() {
	fixturePath := flag.String("fixture", "", "YAML fixture (defaults to the bundled sample)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	if err := run(context.Background(), cfg.DBPath, *fixturePath, logger); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath, fixturePath string, logger *slog.Logger) error {
	fx, err := loadFixture(fixturePath)
	if err != nil {
		return err
	}
	if pw := os.Getenv("SEED_ADMIN_PASSWORD"); pw != "" {
		fx.Admin.Password = pw
	}

	db, err := database.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	seeder := seed.NewSeeder(
		store.NewWeddingStore(db),
		store.NewEventStore(db),
		store.NewGuestStore(db),
		store.NewRSVPStore(db),
		store.NewUserStore(db),
		logging.Component(logger, "seed"),
	)

	res, err := seeder.Run(ctx, fx)
	if err != nil {
		return err
	}

	fmt.Printf("admin:   %s (created: %t)\n", res.AdminID, res.AdminCreated)
	fmt.Printf("wedding: %s\n", res.WeddingID)
	for _, e := range fx.Events {
		fmt.Printf("event:   %-12s %s\n", e.Title, res.EventIDs[e.Title])
	}
	names := make([]string, 0, len(res.GuestIDs))
	for name := range res.GuestIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("guest:   %-12s %s\n", name, res.GuestIDs[name])
	}
	fmt.Println("seed completed")
	return nil
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Sample()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return seed.Parse(data)
}
