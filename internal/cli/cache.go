package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stratum/pkg/cache"
	"github.com/matzehuels/stratum/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.Config.Cache.Disabled {
				printInfo("Cache is disabled")
				return nil
			}
			ch, err := c.newCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer ch.Close()

			clearer, ok := ch.(cache.Clearer)
			if !ok {
				return errors.New(errors.ErrCodeUnsupported, "cache backend cannot be cleared")
			}
			if err := clearer.Clear(cmd.Context()); err != nil {
				return errors.Ensure(errors.ErrCodeInternal, err, "clear cache")
			}

			printSuccess("Cleared layout cache")
			printDetail("%s", c.cacheLocation())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where cached layouts are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(c.stdout, c.cacheLocation())
			return nil
		},
	}
}

// cacheLocation describes the configured backend: the Redis key prefix or
// the cache directory.
func (c *CLI) cacheLocation() string {
	cfg := c.Config.Cache
	if cfg.RedisURL != "" {
		return "redis keys " + cfg.Prefix + "*"
	}
	dir, err := c.cacheDir()
	if err != nil {
		return "(no cache directory: " + err.Error() + ")"
	}
	return dir
}
