package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mlandt/touchline/internal/config"
	"github.com/mlandt/touchline/internal/resolver"
	"github.com/mlandt/touchline/internal/store"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Resolve a free-text query to a fixture id",
	Long: `Run the fixture resolver directly, without any agents. Useful for
checking what a query classifies as and which fixture it lands on:

  touchline resolve "Arsenal vs Chelsea"
  touchline resolve "明天"
  touchline resolve "Premier League"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		// Resolution only needs the catalog; tolerate a missing API key.
		var cfgErr *config.ConfigError
		if !errors.As(err, &cfgErr) || !strings.Contains(cfgErr.Error(), "anthropic_api_key") {
			return err
		}
	}

	fixtureStore, err := store.NewPostgresStore(cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open fixture store: %w", err)
	}
	defer fixtureStore.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	res := resolver.New(fixtureStore, loc)
	fmt.Printf("mode: %s\n", res.Classify(query).Mode)

	result, err := res.Resolve(ctx, query)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case resolver.OutcomeResolved:
		fmt.Printf("resolved: fixture %d\n", result.Fixture.FixtureID)
		printFixture(result.Fixture)
	case resolver.OutcomeAmbiguous:
		fmt.Printf("ambiguous: %d candidates\n", len(result.Candidates))
		for i := range result.Candidates {
			printFixture(&result.Candidates[i])
		}
	case resolver.OutcomeNotFound:
		fmt.Println("not found")
	}
	return nil
}

func printFixture(f *store.FixtureRecord) {
	line := fmt.Sprintf("  %d", f.FixtureID)
	if f.TeamsVS != "" {
		line += "  " + f.TeamsVS
	}
	if f.LeagueName != "" {
		line += "  (" + f.LeagueName + ")"
	}
	if !f.FixtureDate.IsZero() {
		line += "  " + f.FixtureDate.Format("2006-01-02 15:04")
	}
	fmt.Println(line)
}
