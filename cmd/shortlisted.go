package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spigell/cv-shortlister/internal/logger"
	"github.com/spigell/cv-shortlister/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var shortlistedCmd = &cobra.Command{
	Use:   "shortlisted",
	Short: "Print shortlisted candidates from previous runs",
	Run: func(_ *cobra.Command, _ []string) {
		shortlisted()
	},
}

func init() {
	rootCmd.AddCommand(shortlistedCmd)
}

func shortlisted() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	path := "shortlister.db"
	if config.Store != nil && config.Store.Path != "" {
		path = config.Store.Path
	}

	db, err := store.Open(path)
	if err != nil {
		logger.Fatal("opening store", zap.String("store", path), zap.Error(err))
	}
	defer db.Close()

	candidates, err := db.Shortlisted(ctx)
	if err != nil {
		logger.Fatal("listing shortlisted candidates", zap.Error(err))
	}

	if len(candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no shortlisted candidates stored yet"))
		return
	}

	for _, candidate := range candidates {
		fmt.Printf("%.2f\t%s\t%s\t%s\t%s\n",
			candidate.MatchScore,
			candidate.Name,
			candidate.Email,
			candidate.JobTitle,
			candidate.CVFile,
		)
	}
}
