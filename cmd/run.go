package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/cv-shortlister/internal/ai"
	"github.com/spigell/cv-shortlister/internal/ai/gemini"
	"github.com/spigell/cv-shortlister/internal/document"
	"github.com/spigell/cv-shortlister/internal/extraction"
	"github.com/spigell/cv-shortlister/internal/logger"
	"github.com/spigell/cv-shortlister/internal/notify"
	"github.com/spigell/cv-shortlister/internal/pipeline"
	"github.com/spigell/cv-shortlister/internal/secrets"
	"github.com/spigell/cv-shortlister/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptSendInvites  = "Send interview invitations to shortlisted candidates"
	PromptSaveToStore  = "Save results to the database"
	PromptReportToFile = "Dump report to file"
	PromptExit         = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptSendInvites, PromptSaveToStore, PromptReportToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run CV_FILE...",
	Short: "Score candidate CVs against a job description and shortlist the best fits",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("job", "J", "", "job description file (pdf or plain text)")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask what to do with the results: save them and send invitations")
	runCmd.Flags().Float64P("threshold", "t", 0, "minimal match score for shortlisting (default 70)")
	runCmd.Flags().IntP("workers", "w", 0, "concurrent CV extractions (default 1)")

	viper.BindPFlag("shortlist-threshold", runCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("ai.workers", runCmd.Flags().Lookup("workers"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the "+app, zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	jobFile := cmd.Flag("job").Value.String()
	if jobFile == "" {
		logger.Fatal("a job description is required", zap.String("hint", "pass it with --job"))
	}

	gateway, err := newAIGateway(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building ai gateway", zap.Error(err))
	}

	if !gateway.ValidateKey(ctx) {
		logger.Fatal("gemini api key rejected",
			zap.String("hint", "check GEMINI_API_KEY or the ai.gemini.api-key-file configuration key"),
		)
	}

	jd, err := readDocument(jobFile)
	if err != nil {
		logger.Fatal("reading job description", zap.Error(err))
	}

	cvs := make([]document.Document, 0, len(args))
	for _, path := range args {
		cv, err := readDocument(path)
		if err != nil {
			logger.Fatal("reading cv", zap.String("file", path), zap.Error(err))
		}
		cvs = append(cvs, cv)
	}

	extractor := extraction.NewService(gateway, config.MaxPromptChars, config.AI.MaxLogLength, logger)
	pipe := pipeline.New(extractor, viper.GetFloat64("shortlist-threshold"), config.AI.Workers, logger)

	report, err := pipe.Run(ctx, jd, cvs)
	if err != nil {
		logger.Fatal("running the batch", zap.Error(err))
	}

	printReport(report, logger)

	if len(report.Shortlisted()) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates made the shortlist"))
		return
	}

	mailer := newMailer(config, logger)

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := handleAction(ctx, PromptSaveToStore, report, config, mailer, logger); err != nil {
			logger.Fatal("saving results", zap.Error(err))
		}
		if err := handleAction(ctx, PromptSendInvites, report, config, mailer, logger); err != nil {
			logger.Fatal("sending invitations", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, report, config, mailer, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, report *pipeline.Report, config *Config, mailer *notify.Mailer, logger *zap.Logger) error {
	switch action {
	case PromptSendInvites:
		return sendInvites(report, mailer, logger)
	case PromptSaveToStore:
		return saveReport(ctx, report, config, logger)
	case PromptReportToFile:
		filename, err := report.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printReport(report *pipeline.Report, logger *zap.Logger) {
	logger.Info("batch finished",
		zap.String("run_id", report.RunID.String()),
		zap.String("job_title", report.JobTitle),
		zap.Int("processed", len(report.Results)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("shortlisted", len(report.Shortlisted())),
	)

	for _, result := range report.Results {
		logger.Info("candidate scored",
			zap.String("name", result.Name),
			zap.String("email", result.Email),
			zap.String("file", result.Source),
			zap.Float64("score", result.Score),
			zap.Bool("shortlisted", result.Shortlisted),
		)
	}

	for _, skip := range report.Skipped {
		logger.Warn("candidate skipped",
			zap.String("file", skip.Source),
			zap.String("reason", string(skip.Cause)),
		)
	}
}

func sendInvites(report *pipeline.Report, mailer *notify.Mailer, logger *zap.Logger) error {
	shortlisted := report.Shortlisted()

	for _, result := range shortlisted {
		if result.Email == "" {
			logger.Warn("no email address for shortlisted candidate",
				zap.String("name", result.Name),
				zap.String("file", result.Source),
			)
			continue
		}

		mailer.Invite(result.Email, result.Name, report.JobTitle)
	}

	logger.Info("invitations processed", zap.Int("count", len(shortlisted)))
	return nil
}

func saveReport(ctx context.Context, report *pipeline.Report, config *Config, logger *zap.Logger) error {
	path := "shortlister.db"
	if config.Store != nil && config.Store.Path != "" {
		path = config.Store.Path
	}

	db, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	if err := db.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	logger.Info("results saved", zap.String("store", path), zap.Int("count", len(report.Results)))
	return nil
}

func newAIGateway(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Gateway, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY or ai.gemini.api-key-file)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries,
		logger.WithGateway(log, "gemini", cfg.Gemini.Model))
	if err != nil {
		return nil, err
	}

	return generator, nil
}

func newMailer(config *Config, log *zap.Logger) *notify.Mailer {
	if config.SMTP == nil {
		return notify.New(nil, log)
	}

	password, err := secrets.Load(secrets.Source{
		Name: "smtp password",
		File: config.SMTP.PasswordFile,
		Env:  "SMTP_PASSWORD",
	})
	if err != nil {
		log.Debug("no smtp password resolved, mail disabled", zap.Error(err))
	}

	return notify.New(&notify.Config{
		Host:     config.SMTP.Host,
		Port:     config.SMTP.Port,
		From:     config.SMTP.From,
		Username: config.SMTP.Username,
		Password: password,
	}, log)
}

func readDocument(path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, err
	}

	return document.Document{
		Name: filepath.Base(path),
		Data: data,
	}, nil
}
