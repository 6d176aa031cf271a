// Command seed writes the starter dataset, padded with generated demo ideas,
// to the configured storage backend.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"ideon/internal/bootstrap"
	"ideon/internal/config"
	"ideon/internal/persistence"
	"ideon/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of generated users added to the starter set")
	numIdeas := flag.Int("ideas", 40, "Number of generated ideas added to the starter set")
	fakerSeed := flag.Int64("seed", 0, "Faker seed, 0 picks a random one")
	maxDays := flag.Int("days", 30, "Maximum age in days of generated ideas")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.StorageDriver == config.StorageMemory {
		log.Fatalf("STORAGE_DRIVER is %q; set redis, sqlite or postgres to seed persistent storage", cfg.StorageDriver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s backend: %v", cfg.StorageDriver, err)
	}
	defer func() { _ = rt.Close() }()

	ds, err := seed.Load(time.Now())
	if err != nil {
		log.Fatalf("Starter dataset is broken: %v", err)
	}

	factory := seed.NewFactory(*fakerSeed, *maxDays)
	users := ds.Users
	for i := 0; i < *numUsers; i++ {
		users = append(users, factory.User())
	}
	ideas := append(factory.Populate(users, *numIdeas), ds.Ideas...)

	snapshots := persistence.NewStore(rt.KV, nil)
	if err := snapshots.Persist(ctx, &persistence.Snapshot{Users: users, Ideas: ideas}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if err := snapshots.ClearSession(ctx); err != nil {
		log.Printf("Could not clear the stored session: %v", err)
	}

	log.Printf("Seeded %d users and %d ideas into %s", len(users), len(ideas), snapshots.Backend())
	log.Println("Generated users have the password: password123")
}
