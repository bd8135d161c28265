package cmd

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/app"
	kv "github.com/yeisme/docvault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "inspect and flush the document cache",
		Aliases: []string{"cache"},
	}

	kvTypesCmd = &cobra.Command{
		Use:     "types",
		Short:   "list the registered kv backends",
		Aliases: []string{"ls"},
		Run: func(cmd *cobra.Command, args []string) {
			types := kv.GetRegisteredKVTypes()
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

			for _, t := range types {
				fmt.Fprintln(cmd.OutOrStdout(), string(t))
			}
		},
	}

	kvKeysCmd = &cobra.Command{
		Use:         "keys [pattern]",
		Short:       "list cached keys matching a glob, e.g. doc:* or revision:indices:*",
		Args:        cobra.MaximumNArgs(1),
		Annotations: selfBootstrap(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			_, mgr, _, err := app.Bootstrap(ctx, configPath)
			if err != nil {
				return err
			}
			defer mgr.Close()

			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}

			keys, err := mgr.GetKVClient().Keys(ctx, pattern)
			if err != nil {
				return fmt.Errorf("list keys %q: %w", pattern, err)
			}

			sort.Strings(keys)

			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}

			if debug {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d key(s)\n", len(keys))
			}

			return nil
		},
	}

	kvFlushCmd = &cobra.Command{
		Use:         "flush <document-id>...",
		Short:       "drop cached entries and revision indices of documents",
		Args:        cobra.MinimumNArgs(1),
		Annotations: selfBootstrap(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseDocumentIDs(args)
			if err != nil {
				return err
			}

			ctx := context.Background()

			_, mgr, svc, err := app.Bootstrap(ctx, configPath)
			if err != nil {
				return err
			}
			defer mgr.Close()

			var result error

			for _, id := range ids {
				if err := svc.Cached.Invalidate(ctx, id); err != nil {
					result = multierror.Append(result, fmt.Errorf("document %d: %w", id, err))
					continue
				}

				if err := svc.Index.Invalidate(ctx, id); err != nil {
					result = multierror.Append(result, fmt.Errorf("document %d indices: %w", id, err))
					continue
				}

				fmt.Fprintf(cmd.OutOrStdout(), "flushed document %d\n", id)
			}

			return result
		},
	}
)

func parseDocumentIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))

	for _, a := range args {
		n, err := strconv.ParseUint(a, 10, 64)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid document id %q", a)
		}

		ids = append(ids, uint(n))
	}

	return ids, nil
}

// registerKVCommands 注册缓存相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvTypesCmd, kvKeysCmd, kvFlushCmd)
}
