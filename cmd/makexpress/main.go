// Command makexpress serves a small site through express style handlers
// running on mak.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SaulDoesCode/makexpress"
	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

func newRootCmd() *cobra.Command {
	var config, addr string

	cmd := &cobra.Command{
		Use:   "makexpress",
		Short: "Serve express style handlers on mak",
		Long: `makexpress runs a demo site whose handlers are written against the
express req/res API and mounted on a mak instance. Without --config it
starts in dev mode on --addr.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := instance(config, addr, cmd.Flags().Changed("addr"))
			if err != nil {
				return err
			}
			routes(in)
			return serve(cmd.Context(), in)
		},
	}

	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.Flags().StringVarP(&config, "config", "c", "", "json, toml or yaml config file")
	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address, overrides the config file's")
	return cmd
}

// instance makes the mak instance from the config file, or a dev mode one
// listening on addr when there is none.
func instance(config, addr string, addrSet bool) (*mak.Instance, error) {
	if config == "" {
		return mak.Make(&mak.Config{
			AppName: "makexpress",
			Address: addr,
			DevMode: true,
			ETag:    true,
		}), nil
	}

	in, err := mak.MakeFromConf(config)
	if err != nil {
		return nil, err
	}
	if addrSet {
		in.Server.Addr = addr
	}
	return in, nil
}

// serve runs in until it fails or ctx ends or the process is signalled,
// then shuts it down gracefully.
func serve(ctx context.Context, in *mak.Instance) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- in.Run() }()
	in.Logger.Info("listening", "addr", in.Server.Addr, "app", in.Config.AppName)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	in.Logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return in.Shutdown(sctx)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
