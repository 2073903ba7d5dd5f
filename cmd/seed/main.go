package main

import (
	"context"
	"flag"
	"time"

	"github.com/2beens/bodylog/internal"
	"github.com/2beens/bodylog/internal/config"
	"github.com/2beens/bodylog/internal/logging"
	"github.com/2beens/bodylog/internal/seed"

	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	fixed := flag.Bool("fixed", false, "write the fixed sample set instead of random entries")
	count := flag.Int("n", 30, "number of random entries per kind, one per day up to today")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "random generator seed")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
	})

	if cfg.StoreBackend == config.StoreMemory {
		log.Fatalln("the memory store does not outlive this process, configure firestore or postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	entryStore, err := internal.OpenEntryStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open entry store: %s", err)
	}
	defer entryStore.Close()

	seeder := seed.NewSeeder(entryStore.Store)

	var res seed.Result
	if *fixed {
		res, err = seeder.Fixed(ctx)
	} else {
		res, err = seeder.Random(ctx, *count, *randSeed, time.Now())
	}
	if err != nil {
		log.Errorf("seeding stopped after %s: %s", res, err)
		return
	}

	log.Infof("seeded %s into the %s store", res, cfg.StoreBackend)
}
