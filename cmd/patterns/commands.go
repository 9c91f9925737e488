package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"recommender/application/commands"
	"recommender/application/queries"
	"recommender/domain/recommendation"
	"recommender/infrastructure/config"
	"recommender/infrastructure/di"
	"recommender/infrastructure/seed"
	"recommender/pkg/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// loader builds a container from the resolved configuration
type loader func(ctx context.Context, cfg *config.Config) (*di.Container, func(), error)

func defaultLoader(ctx context.Context, cfg *config.Config) (*di.Container, func(), error) {
	return di.InitializeContainer(ctx, cfg)
}

type globalFlags struct {
	configPath string
	store      string
	logLevel   string
	asJSON     bool
}

func newRootCmd(out io.Writer, load loader) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "patterns",
		Short:         "Run recommendation strategies over the learning graph",
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	root.PersistentFlags().StringVar(&flags.store, "store", "", "override the store driver (memory, neo4j, dynamodb, sqlite, snapshot)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level")
	root.PersistentFlags().BoolVar(&flags.asJSON, "json", false, "print JSON instead of tables")

	withContainer := func(cmd *cobra.Command, fn func(ctx context.Context, c *di.Container) error) error {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return err
		}
		if flags.store != "" {
			cfg.Store.Driver = flags.store
		}
		if flags.logLevel != "" {
			cfg.Server.LogLevel = flags.logLevel
		}
		cfg.Metrics.Sink = "none"
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		container, cleanup, err := load(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		return fn(ctx, container)
	}

	root.AddCommand(
		newListCmd(out, flags),
		newRunCmd(out, flags, withContainer),
		newRecommendCmd(out, withContainer),
		newSeedCmd(out, withContainer),
		newLogCmd(out, withContainer),
	)
	return root
}

type containerFunc func(cmd *cobra.Command, fn func(ctx context.Context, c *di.Container) error) error

func newListCmd(out io.Writer, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the strategies and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors := recommendation.DefaultCatalog().Describe()
			if flags.asJSON {
				return printJSON(out, descriptors)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tENDPOINT\tSCORE\tPARAMS")
			for _, d := range descriptors {
				names := make([]string, 0, len(d.ParamSchema))
				for _, p := range d.ParamSchema {
					name := p.Name
					if p.Default != nil {
						name = fmt.Sprintf("%s=%v", p.Name, p.Default)
					}
					names = append(names, name)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Key, d.Endpoint, d.ScoreField, strings.Join(names, " "))
			}
			return tw.Flush()
		},
	}
}

func newRunCmd(out io.Writer, flags *globalFlags, withContainer containerFunc) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "run <strategy> [--param name=value ...]",
		Short: "Run one strategy and print the ranked rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseParams(params)
			if err != nil {
				return err
			}
			strategy, err := recommendation.DefaultCatalog().Lookup(args[0])
			if err != nil {
				return err
			}

			return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				answer, err := c.QueryBus.Ask(ctx, queries.RunStrategyQuery{Strategy: args[0], Params: raw})
				if err != nil {
					return err
				}
				result, ok := answer.(recommendation.Result)
				if !ok {
					return fmt.Errorf("unexpected result %T", answer)
				}
				if flags.asJSON {
					return printJSON(out, result)
				}
				return printRows(out, strategy.Columns, result)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "strategy parameter as name=value, repeatable")
	return cmd
}

func newRecommendCmd(out io.Writer, withContainer containerFunc) *cobra.Command {
	var (
		legacy bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "recommend <user_id>",
		Short: "Print the combined recommendation of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				var query interface{ Validate() error } = queries.GetRecommendationsQuery{UserID: args[0]}
				if legacy {
					query = queries.GetLegacyRecommendationsQuery{UserID: args[0], Limit: limit}
				}
				answer, err := c.QueryBus.Ask(ctx, query)
				if err != nil {
					return err
				}
				return printJSON(out, answer)
			})
		},
	}
	cmd.Flags().BoolVar(&legacy, "legacy", false, "print the flat course list instead")
	cmd.Flags().IntVar(&limit, "limit", 0, "course list size for --legacy")
	return cmd
}

func newSeedCmd(out io.Writer, withContainer containerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a YAML fixture of nodes and edges into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			fixture, err := seed.Parse(file)
			if err != nil {
				return err
			}

			return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				if c.Config.Store.Driver == config.DriverMemory && c.Config.Engine.Executor == config.ExecutorLocal {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: the memory store is discarded when this command exits")
				}
				stats, err := fixture.Apply(ctx, c.Writer)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "seeded %d nodes and %d edges\n", stats.Nodes, stats.Edges)
				return nil
			})
		},
	}
}

func newLogCmd(out io.Writer, withContainer containerFunc) *cobra.Command {
	var (
		strategy string
		accepted string
		at       string
	)

	cmd := &cobra.Command{
		Use:   "log <user_id> <exercise_id>",
		Short: "Record that an exercise was recommended to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logCmd := commands.LogRecommendationCommand{
				ID:         uuid.NewString(),
				UserID:     args[0],
				ExerciseID: args[1],
				Strategy:   strategy,
				Timestamp:  time.Now().UTC(),
			}
			if accepted != "" {
				b, err := strconv.ParseBool(accepted)
				if err != nil {
					return fmt.Errorf("--accepted: %w", err)
				}
				logCmd.Accepted = &b
			}
			if at != "" {
				ts, err := utils.ParseRFC3339(at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				logCmd.Timestamp = ts
			}

			return withContainer(cmd, func(ctx context.Context, c *di.Container) error {
				if err := c.CommandBus.Send(ctx, logCmd); err != nil {
					return err
				}
				fmt.Fprintf(out, "logged %s\n", logCmd.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "", "strategy that produced the recommendation")
	cmd.Flags().StringVar(&accepted, "accepted", "", "whether the user accepted it (true/false)")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 timestamp, defaults to now")
	return cmd
}

// parseParams turns name=value pairs into raw strategy parameters. Values stay strings;
// the strategy schema converts them.
func parseParams(pairs []string) (map[string]any, error) {
	raw := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --param %q, expected name=value", pair)
		}
		raw[strings.TrimSpace(name)] = value
	}
	return raw, nil
}

func printRows(out io.Writer, columns []recommendation.Column, result recommendation.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(col.Label)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range result.Rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col.Key]; ok {
				cells[i] = fmt.Sprint(v)
			} else {
				cells[i] = "-"
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if result.Truncated {
		fmt.Fprintf(out, "(%d rows shown, more available: raise limit)\n", len(result.Rows))
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
