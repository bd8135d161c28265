package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/rule"
)

const masked = "******"

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect and check the configuration",
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			used := configs.GetViper().ConfigFileUsed()
			if used == "" {
				used = "no config file used (defaults and DOCVAULT_* env)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), used)

			return nil
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show [section]",
		Short: "print the effective config as JSON, secrets masked",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if debug {
				v.Debug()
			}

			var out any = v.AllSettings()
			if len(args) == 1 {
				if !v.IsSet(args[0]) {
					return fmt.Errorf("unknown config section %q", args[0])
				}

				out = v.Get(args[0])
			}

			b, err := sonic.ConfigStd.MarshalIndent(maskSecrets(out), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	configCheckCmd = &cobra.Command{
		Use:         "check",
		Short:       "load the config and report every invalid key",
		Annotations: selfBootstrap(),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := configs.InitConfig(configPath)
			if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "config ok")

				return nil
			}

			var errs rule.ValidationErrors
			if !errors.As(err, &errs) {
				return err
			}

			for key, msg := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", key, msg)
			}

			return fmt.Errorf("%d invalid config key(s)", len(errs))
		},
	}
)

// maskSecrets 递归替换名称含 password/secret 的值.
func maskSecrets(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}

	out := make(map[string]any, len(m))

	for k, val := range m {
		lk := strings.ToLower(k)
		if (strings.Contains(lk, "password") || strings.Contains(lk, "secret")) && val != "" {
			out[k] = masked

			continue
		}

		out[k] = maskSecrets(val)
	}

	return out
}

func registerConfigsCommands() {
	configCmd.AddCommand(configPathCmd, configShowCmd, configCheckCmd)

	rootCmd.AddCommand(configCmd)
}
