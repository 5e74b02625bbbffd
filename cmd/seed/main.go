// Command seed fills a development database with generated Warbler data.
package main

import (
	"context"
	"flag"
	"log"

	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	numMessages := flag.Int("messages", defaults.MessagesPerUser, "Messages per user")
	numFollows := flag.Int("follows", defaults.FollowsPerUser, "Users followed by each user")
	numLikes := flag.Int("likes", defaults.LikesPerUser, "Likes given by each user")
	randSeed := flag.Int64("seed", defaults.Seed, "Random seed for reproducible data")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = database.Close(db) }()
	if rdb != nil {
		// Cached users would outlive a clean.
		if err := rdb.FlushDB(ctx).Err(); err != nil {
			log.Printf("Failed to flush Redis: %v", err)
		}
		_ = rdb.Close()
	}

	opts := defaults
	opts.Users = *numUsers
	opts.MessagesPerUser = *numMessages
	opts.FollowsPerUser = *numFollows
	opts.LikesPerUser = *numLikes
	opts.Seed = *randSeed
	opts.BcryptCost = cfg.BcryptCost

	s := seed.NewSeeder(db, opts)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d messages, %d follows, %d likes", res.Users, res.Messages, res.Follows, res.Likes)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
