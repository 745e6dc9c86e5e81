// qtdeferred serves question attempts graded with deferred feedback.
//
// Usage:
//
//	qtdeferred serve [--addr=:8080] [--db-driver=sqlite] [--db-dsn=...] [--bank=questions.yaml]
//	qtdeferred migrate [--db-driver=...] [--db-dsn=...]
//	qtdeferred events [--after=0] [--limit=100]
//	qtdeferred hash-password <password>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/qtdeferred/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

var cfg = config.FromEnv()

var rootCmd = &cobra.Command{
	Use:   "qtdeferred",
	Short: "Question attempts with deferred feedback",
	Long: "qtdeferred records question attempts step by step, grades the final\n" +
		"response when the attempt is finished and can resume an attempt into a new one.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver: sqlite or postgres (env DB_DRIVER)")
	pf.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "database DSN (env DB_DSN)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
