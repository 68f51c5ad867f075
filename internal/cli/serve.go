package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stratum/internal/server"
)

// serveCommand creates the serve command for the HTTP layout service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		noCache  bool
		redisURL string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP layout service",
		Long: `Run the HTTP layout service.

POST a JSON or DOT graph to /layout and receive the layout as JSON, DOT or
SVG (?output=svg). Layout options are accepted as query parameters; values
from the configuration file's [layout] section apply when a request leaves
them unset. Set a Redis URL to share the layout cache between instances.`,
		Example: `  stratum serve --addr :8080 --redis redis://localhost:6379/0
  curl --data-binary @graph.dot -H 'Content-Type: text/vnd.graphviz' \
    'localhost:8080/layout?output=svg&rankdir=LR'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.Config.Server.Addr = addr
			}
			if redisURL != "" {
				c.Config.Cache.RedisURL = redisURL
			}
			return c.runServe(cmd.Context(), noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: "+c.Config.Server.Addr+")")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the layout cache")
	cmd.Flags().StringVar(&redisURL, "redis", "", "use a Redis layout cache at this URL")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	cfg := c.Config
	srv := server.New(runner,
		server.WithLogger(c.Logger),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithTimeout(cfg.ServerTimeout()),
		server.WithLayoutDefaults(cfg.LayoutOptions()),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
