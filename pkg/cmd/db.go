package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "database dialects, connection string and schema migration",
	}

	dbDSNCmd = &cobra.Command{
		Use:   "dsn",
		Short: "print the connection string built from the config, password masked",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), maskedDSN(configs.GetConfig().DB))
		},
	}

	dbListCmd = &cobra.Command{
		Use:   "ls",
		Short: "list the database dialects compiled into this binary",
		Run: func(cmd *cobra.Command, args []string) {
			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), string(dbType))
			}
		},
	}

	// db.New 在连接后执行迁移
	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the document tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()

			client, err := db.New(cmd.Context(), &cfg.DB)
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database %s\n", cfg.DB.Label(), cfg.DB.Database)

			return nil
		},
	}
)

func maskedDSN(cfg configs.DBConfig) string {
	if cfg.Password != "" {
		cfg.Password = "xxxxx"
	}

	return cfg.DSN()
}

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbDSNCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}
