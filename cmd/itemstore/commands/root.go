// Package commands defines the itemstore CLI commands and their flag bindings.
package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that provide flag defaults,
// e.g. ITEMSTORE_ENDPOINT for --endpoint.
const EnvPrefix = "ITEMSTORE"

// Root returns the root command for the itemstore CLI.
func Root() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "itemstore",
		Short:         "Read and write items in S3 buckets and local directories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional
			_ = godotenv.Load()
			return setupLogger(cmd, v.GetString("log-level"))
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("region", "", "AWS region (default from the AWS config, then us-east-1)")
	flags.String("endpoint", "", "S3 endpoint URL for S3-compatible services such as minio")
	flags.Bool("path-style", false, "Use path-style S3 addressing")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	_ = v.BindPFlags(flags)

	cmd.AddCommand(Verify(v))
	cmd.AddCommand(Exists(v))
	cmd.AddCommand(Cat(v))
	cmd.AddCommand(Put(v))
	cmd.AddCommand(Rm(v))
	cmd.AddCommand(RmFolder(v))
	cmd.AddCommand(Ls(v))

	return cmd
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func setupLogger(cmd *cobra.Command, level string) error {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: lv,
	})))
	return nil
}
