package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/chronolog/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx, p)
		if err != nil {
			return err
		}
		defer s.Close()

		srv, err := server.NewServer(ctx, p, s)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Start(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", "", "address of server")
	flags.IntP("port", "p", 8081, "port of server")
	flags.Duration("sweep-interval", 0, "interval between expired session sweeps (0 disables)")
	flags.Bool("require-confirmation", true, "ask before logging fully specified requests")

	for _, key := range []string{"addr", "port", "sweep-interval", "require-confirmation"} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
}
