package cmd

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/seed"
	"github.com/spigell/matchmaker/internal/storage/memory"
	"github.com/spigell/matchmaker/internal/storage/postgres"
)

const defaultSeedCount = 100

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate a synthetic candidate pool",
	Run: func(cmd *cobra.Command, _ []string) {
		runSeed(cmd)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntP("count", "n", defaultSeedCount, "number of profiles, half of each gender")
	seedCmd.Flags().Int64("seed", 0, "random seed; the same seed yields the same pool (default is time based)")
	seedCmd.Flags().StringP("out", "o", "", "json file for the memory driver (default is storage.memory.seed-file)")
}

func runSeed(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	count, _ := cmd.Flags().GetInt("count")
	s, _ := cmd.Flags().GetInt64("seed")
	if s == 0 {
		s = time.Now().UnixNano()
	}

	pool, err := seed.New(s).Pool(count)
	if err != nil {
		logger.Fatal("generating profiles", zap.Error(err))
	}

	logger.Info("generated profiles", zap.Int("count", len(pool)), zap.Int64("seed", s))

	driver := driverMemory
	if config.Storage != nil && config.Storage.Driver != "" {
		driver = strings.ToLower(config.Storage.Driver)
	}

	switch driver {
	case driverPostgres:
		db, err := openPostgres(ctx, config.Storage.Postgres)
		if err != nil {
			logger.Fatal("opening postgres", zap.Error(err))
		}
		defer db.Close()

		if err := postgres.NewProfileStore(db).Upsert(ctx, pool); err != nil {
			logger.Fatal("storing profiles", zap.Error(err))
		}
		logger.Info("profiles stored in postgres", zap.Int("count", len(pool)))
	case driverMemory:
		out, _ := cmd.Flags().GetString("out")
		if out == "" && config.Storage != nil && config.Storage.Memory != nil {
			out = config.Storage.Memory.SeedFile
		}
		if out == "" {
			logger.Fatal("output file is required", zap.String("hint", "pass --out or set storage.memory.seed-file"))
		}

		if err := memory.WriteProfiles(out, pool); err != nil {
			logger.Fatal("writing profiles", zap.Error(err))
		}
		logger.Info("profiles written", zap.String("filename", out))
	default:
		logger.Fatal("seeding is not supported for this storage driver", zap.String("driver", driver))
	}
}
