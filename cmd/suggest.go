package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/match"
	"github.com/spigell/matchmaker/internal/profile"
)

const (
	PromptSuggest = "Generate suggestions"
	PromptHistory = "Show history"
	PromptDump    = "Dump suggestions as JSON"
	PromptBack    = "back"
	PromptExit    = "exit"
)

var errExit = errors.New("exit requested")

// lister is implemented by stores that can enumerate their customers.
type lister interface {
	All() []*profile.Profile
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [customer-id]",
	Short: "Run one matching round for a customer and print the suggestions",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		suggest(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().Bool("history", false, "print previously stored suggestions instead of running a new round")
	suggestCmd.Flags().IntP("limit", "l", 0, "history size (default 50)")
	suggestCmd.Flags().StringP("exclude-file", "e", "", "file with candidates to exclude. Default is unset.")

	viper.BindPFlag("matching.exclude-file", suggestCmd.Flags().Lookup("exclude-file"))
}

func suggest(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	logConfig(logger, config)

	c, err := build(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}
	defer c.Close(logger)

	history, _ := cmd.Flags().GetBool("history")
	limit, _ := cmd.Flags().GetInt("limit")

	if len(args) == 1 {
		if history {
			err = printHistory(ctx, c, logger, args[0], limit)
		} else {
			_, err = runSuggest(ctx, c, logger, args[0])
		}
		if err != nil {
			logger.Error("exiting", zap.Error(err))
		}
		return
	}

	store, ok := c.profiles.(lister)
	if !ok {
		logger.Error("customer id is required", zap.String("hint", "the interactive picker only works with the memory storage driver"))
		return
	}

	if err := interactive(ctx, c, logger, store); err != nil && !errors.Is(err, errExit) {
		logger.Error("exiting", zap.Error(err))
	}
}

func interactive(ctx context.Context, c *components, logger *zap.Logger, store lister) error {
	customers := store.All()
	if len(customers) == 0 {
		return errors.New("there are no profiles in the store")
	}

	items := make([]string, 0, len(customers)+1)
	for _, p := range customers {
		items = append(items, customerLabel(p))
	}

	for {
		customerPrompt := promptui.Select{
			Label: "Choose a customer and press ENTER",
			Items: append(items, PromptExit),
			Size:  15,
		}

		_, selected, err := customerPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptExit {
			return errExit
		}

		customerID := strings.Split(selected, " ")[0]
		if err := customerActions(ctx, c, logger, customerID); err != nil {
			return err
		}
	}
}

func customerActions(ctx context.Context, c *components, logger *zap.Logger, customerID string) error {
	var last []match.Ranked

	for {
		actionPrompt := promptui.Select{
			Label: fmt.Sprintf("Customer %s", customerID),
			Items: []string{PromptSuggest, PromptHistory, PromptDump, PromptBack},
		}

		_, action, err := actionPrompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptSuggest:
			ranked, err := runSuggest(ctx, c, logger, customerID)
			if err != nil {
				return err
			}
			last = ranked
		case PromptHistory:
			if err := printHistory(ctx, c, logger, customerID, 0); err != nil {
				return err
			}
		case PromptDump:
			pretty, err := json.MarshalIndent(last, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding suggestions: %w", err)
			}
			fmt.Println(string(pretty))
		case PromptBack:
			return nil
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

func runSuggest(ctx context.Context, c *components, logger *zap.Logger, customerID string) ([]match.Ranked, error) {
	ranked, err := c.engine.Suggest(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("suggestions for %s: %w", customerID, err)
	}

	if len(ranked) == 0 {
		logger.Info("no suggestions", zap.String("customer_id", customerID))
		return ranked, nil
	}

	for i, r := range ranked {
		logger.Info(fmt.Sprintf("#%d %s", i+1, r.CandidateName),
			zap.String("candidate_id", r.CandidateID),
			zap.Int("score", r.Score),
			zap.String("tier", string(r.Tier)),
			zap.String("source", string(r.Source)),
			zap.String("explanation", r.Explanation),
			zap.String("intro", r.Intro),
		)
	}

	logger.Info("suggestions stored", zap.Int("count", len(ranked)))
	return ranked, nil
}

func printHistory(ctx context.Context, c *components, logger *zap.Logger, customerID string, limit int) error {
	list, err := c.engine.History(ctx, customerID, limit)
	if err != nil {
		return fmt.Errorf("history for %s: %w", customerID, err)
	}

	for _, s := range list {
		logger.Info("suggestion",
			zap.String("candidate_id", s.CandidateID),
			zap.Int("score", s.Score),
			zap.String("explanation", s.Explanation),
			zap.Time("created_at", s.CreatedAt),
		)
	}
	logger.Info("history", zap.String("customer_id", customerID), zap.Int("count", len(list)))
	return nil
}

func customerLabel(p *profile.Profile) string {
	city := p.City
	if city == "" {
		city = "-"
	}
	pool := ""
	if p.IsCandidatePool {
		pool = " [pool]"
	}
	return fmt.Sprintf("%s %s / %s / %s%s", p.ID, p.FullName(), p.Gender, city, pool)
}
