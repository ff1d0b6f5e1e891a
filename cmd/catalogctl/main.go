package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"media-catalog/internal/database"
	"media-catalog/internal/maintenance"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	// Default timeout for a whole command
	defaultTimeout = 30 * time.Minute
	// Default database directory path
	defaultDatabaseDir = "/database"
	// Database file name inside the database directory
	databaseFile = "catalog.db"
)

type globalOptions struct {
	databaseDir string
	timeout     time.Duration
	batchSize   int
}

func main() {
	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		if interrupted(err) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{}

	databaseDir := os.Getenv("CATALOG_DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}

	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "Catalog maintenance tool",
		Long: `Maintenance commands for the catalog database.

Known tags counters and computed tags are kept up to date incrementally by
the server. These commands recount them from scratch, for example after a
bulk import or a restore.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&opts.databaseDir, "database-dir", databaseDir,
		"Path to the database directory (env CATALOG_DATABASE_DIR)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout,
		"Upper bound for the whole command")
	root.PersistentFlags().IntVar(&opts.batchSize, "batch-size", 0,
		"Rows read per page during rebuilds (default 1000)")

	root.AddCommand(
		newRebuildKnownTagsCmd(opts),
		newRecomputeTagsCmd(opts),
		newStatsCmd(opts),
		newVacuumCmd(opts),
	)
	return root
}

// withDatabase opens the catalog database, runs fn and closes it.
func withDatabase(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, db *database.Database) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	dbPath := filepath.Join(opts.databaseDir, databaseFile)
	db, err := database.New(ctx, dbPath, nil)
	if err != nil {
		return fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close database: %v\n", err)
		}
	}()

	return fn(ctx, db)
}

func newRunner(db *database.Database, opts *globalOptions) *maintenance.Runner {
	return maintenance.NewRunner(db, maintenance.Options{BatchSize: opts.batchSize})
}

func newRebuildKnownTagsCmd(opts *globalOptions) *cobra.Command {
	var (
		userID string
		anon   bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "rebuild-known-tags",
		Short: "Recount known tags counters",
		Long: `Recount known tags counters from computed tags.

Examples:
  # Rebuild the counters of one user
  catalogctl rebuild-known-tags --user 5f0c...

  # Rebuild the anonymous counters
  catalogctl rebuild-known-tags --anon

  # Rebuild every user and the anonymous scope, then drop zero counters
  catalogctl rebuild-known-tags --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, opts, func(ctx context.Context, db *database.Database) error {
				runner := newRunner(db, opts)
				out := cmd.OutOrStdout()

				switch {
				case all:
					report, err := runner.RebuildAll(ctx)
					if err != nil {
						return err
					}
					for _, s := range report.Scopes {
						fmt.Fprintln(out, s)
					}
					fmt.Fprintf(out, "Rebuilt %d scopes in %v, dropped %d unused counters\n",
						len(report.Scopes), report.Duration, report.Dropped)
				case anon:
					stats, err := runner.RebuildKnownTagsForAnon(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, stats)
				default:
					id, err := uuid.Parse(userID)
					if err != nil {
						return fmt.Errorf("invalid user id %q: %w", userID, err)
					}
					user, err := db.Conn().GetUserByUUID(ctx, id)
					if err != nil {
						return err
					}
					stats, err := runner.RebuildKnownTagsForUser(ctx, user.ID)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, stats)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "UUID of the user to rebuild")
	cmd.Flags().BoolVar(&anon, "anon", false, "Rebuild the anonymous scope")
	cmd.Flags().BoolVar(&all, "all", false, "Rebuild every scope")
	cmd.MarkFlagsMutuallyExclusive("user", "anon", "all")
	cmd.MarkFlagsOneRequired("user", "anon", "all")

	return cmd
}

func newRecomputeTagsCmd(opts *globalOptions) *cobra.Command {
	var (
		itemID     string
		all        bool
		noChildren bool
	)

	cmd := &cobra.Command{
		Use:   "recompute-tags",
		Short: "Recompute computed tags of items",
		Long: `Recompute the computed tags of an item from its own and ancestor tags,
adjusting known tags counters by the difference.

Examples:
  # Recompute one item and everything below it
  catalogctl recompute-tags --item 5f0c...

  # Recompute one item only
  catalogctl recompute-tags --item 5f0c... --no-children

  # Recompute every tree in the catalog
  catalogctl recompute-tags --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, opts, func(ctx context.Context, db *database.Database) error {
				runner := newRunner(db, opts)
				out := cmd.OutOrStdout()

				if all {
					roots, err := runner.RebuildComputedTags(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Recomputed %d root items\n", roots)
					return nil
				}

				id, err := uuid.Parse(itemID)
				if err != nil {
					return fmt.Errorf("invalid item id %q: %w", itemID, err)
				}
				item, err := db.Conn().GetItemByUUID(ctx, id)
				if err != nil {
					return err
				}
				affected, err := runner.RecomputeItemTags(ctx, item.ID,
					maintenance.RecomputeOptions{ApplyToChildren: !noChildren})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Recomputed %s: %d users affected, anonymous affected: %t\n",
					item.UUID, len(affected.Users), affected.Anon)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "UUID of the item to recompute")
	cmd.Flags().BoolVar(&all, "all", false, "Recompute every item")
	cmd.Flags().BoolVar(&noChildren, "no-children", false, "Do not descend into children")
	cmd.MarkFlagsMutuallyExclusive("item", "all")
	cmd.MarkFlagsOneRequired("item", "all")
	cmd.MarkFlagsMutuallyExclusive("all", "no-children")

	return cmd
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, opts, func(ctx context.Context, db *database.Database) error {
				s, err := db.Stats(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Users:       %d public, %d private\n", s.PublicUsers, s.PrivateUsers)
				fmt.Fprintf(out, "Items:       %d (%d collections, %d deleted)\n", s.Items, s.Collections, s.DeletedItems)
				fmt.Fprintf(out, "Known tags:  %d user rows, %d anonymous rows\n", s.KnownTagsUser, s.KnownTagsAnon)
				return nil
			})
		},
	}
}

func newVacuumCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Reclaim free space in the database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, opts, func(ctx context.Context, db *database.Database) error {
				if err := db.Vacuum(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Database vacuumed.")
				return nil
			})
		},
	}
}

// interrupted reports whether err came from a cancelled command.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
