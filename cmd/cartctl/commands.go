package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/app"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/config"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/domain"
	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/logger"
)

// withStore loads the environment config, opens the store and runs fn.
func withStore(cmd *cobra.Command, migrate bool, fn func(ctx context.Context, s *app.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, _ := cmd.Flags().GetString("log-level")
	log := logger.NewWithWriter("cartctl", level, os.Stderr)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, log, migrate)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(ctx, store)
}

// partitionKey accepts "cart:<id>", "cart:guest:<session>" or a bare user id.
func partitionKey(arg string) string {
	if strings.HasPrefix(arg, domain.PartitionPrefix) {
		return arg
	}
	return domain.PartitionKey(&domain.Identity{ID: arg})
}

func newShowCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <partition>",
		Short: "Print the normalized cart stored under a partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := partitionKey(args[0])
			return withStore(cmd, false, func(ctx context.Context, s *app.Store) error {
				data, err := s.Get(ctx, key)
				if errors.Is(err, apperrors.ErrNotFound) {
					return fmt.Errorf("no snapshot under %s", key)
				}
				if err != nil {
					return err
				}
				if raw {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), data)
					return err
				}

				lines, err := domain.DecodeSnapshot(data)
				if err != nil {
					return fmt.Errorf("snapshot under %s is malformed: %w", key, err)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(domain.NewView(key, lines))
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the stored value without normalizing it")
	return cmd
}

func newNormalizeCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "normalize <partition>...",
		Short: "Rewrite snapshots in normalized form, locking lines without maxStock",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, false, func(ctx context.Context, s *app.Store) error {
				for _, arg := range args {
					key := partitionKey(arg)
					data, err := s.Get(ctx, key)
					if errors.Is(err, apperrors.ErrNotFound) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: missing\n", key)
						continue
					}
					if err != nil {
						return err
					}

					lines, err := domain.DecodeSnapshot(data)
					if err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: malformed, skipped (%v)\n", key, err)
						continue
					}
					normalized, err := domain.EncodeSnapshot(lines)
					if err != nil {
						return err
					}
					if normalized == data {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: already normalized\n", key)
						continue
					}
					if !dryRun {
						if err := s.Set(ctx, key, normalized); err != nil {
							return err
						}
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: rewrote %d lines\n", key, len(lines))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <partition>",
		Short: "Delete the snapshot under a partition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := partitionKey(args[0])
			return withStore(cmd, false, func(ctx context.Context, s *app.Store) error {
				if err := s.Delete(ctx, key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: deleted\n", key)
				return nil
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the cart_snapshots schema (postgres store only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, true, func(_ context.Context, s *app.Store) error {
				if s.Postgres == nil {
					return fmt.Errorf("migrate needs CART_STORE=postgres, got %s", s.Name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newPurgeGuestsCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge-guests",
		Short: "Delete guest snapshots not written recently (postgres store only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, false, func(ctx context.Context, s *app.Store) error {
				if s.Postgres == nil {
					return fmt.Errorf("purge-guests needs CART_STORE=postgres, got %s", s.Name)
				}
				n, err := s.Postgres.PurgeGuests(ctx, olderThan.Seconds())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d guest snapshots\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "minimum age of purged snapshots")
	return cmd
}
