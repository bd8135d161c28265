package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/app"
	"github.com/yeisme/docvault/pkg/internal/authz"
)

var (
	validateUser string
	validateFix  bool

	validateCmd = &cobra.Command{
		Use:         "validate",
		Short:       "check document structure and optionally apply fixes",
		Annotations: selfBootstrap(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			_, mgr, svc, err := app.Bootstrap(ctx, configPath)
			if err != nil {
				return err
			}
			defer mgr.Close()

			user := authz.User{ID: validateUser, Role: authz.RoleAdmin}

			findings, verr := svc.Validator.Validate(ctx, user)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DOCUMENT\tSLUG\tCODE\tSEVERITY\tPARAM\tMESSAGE")

			for _, f := range findings {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\t%s\n", f.DocumentID, f.Slug, f.Code, f.Severity, f.Param, f.Message)
			}

			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d finding(s)\n", len(findings))

			if !validateFix {
				return verr
			}

			var result error
			if verr != nil {
				result = multierror.Append(result, verr)
			}

			fixed := 0

			for _, f := range findings {
				if !f.Fixable {
					continue
				}

				if err := svc.Validator.Fix(ctx, user, f.DocumentID, int(f.Code), f.Param); err != nil {
					result = multierror.Append(result, fmt.Errorf("fix document %d: %w", f.DocumentID, err))

					continue
				}

				fixed++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d fix(es) applied\n", fixed)

			return result
		},
	}
)

// registerValidateCommands 注册结构校验命令.
func registerValidateCommands() {
	validateCmd.Flags().StringVar(&validateUser, "user", "system", "identity recorded on repairs")
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "apply every fixable repair")

	rootCmd.AddCommand(validateCmd)
}
