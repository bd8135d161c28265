// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/configs"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "docvault",
		Short: "Document repository with revision history, edit locks and structure repair",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// serve / validate / db migrate 自行初始化
			if cmd.Annotations["bootstrap"] == "self" {
				return nil
			}

			return configs.InitConfig(configPath)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print verbose output")

	registerServeCommands()
	registerValidateCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// selfBootstrap 标记自行加载配置与存储的命令.
func selfBootstrap() map[string]string {
	return map[string]string{"bootstrap": "self"}
}
