package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/gabrielajasnosz/subscriptions-contract/internal/watcher"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Store contract notifications and serve subscriber metrics",
		Long: `Follow notifications of the configured contract over WebSocket, store them in
SQLite database and serve Prometheus metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.watch(cmd.Context())
		},
	}
}

func (a *app) watch(ctx context.Context) error {
	h, err := a.contractHash()
	if err != nil {
		return err
	}

	if a.cfg.Endpoint == "" {
		return errMissingEndpoint
	}

	ws, err := rpcclient.NewWS(ctx, a.cfg.Endpoint, rpcclient.WSOptions{
		Options: rpcclient.Options{
			DialTimeout:    a.cfg.Timeout,
			RequestTimeout: a.cfg.Timeout,
		},
	})
	if err != nil {
		return fmt.Errorf("WS client dial: %w", err)
	}
	defer ws.Close()

	if err := ws.Init(); err != nil {
		return fmt.Errorf("init WS client: %w", err)
	}

	store, err := watcher.OpenStore(a.cfg.Watcher.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()

	m, err := watcher.NewMetrics(a.cfg.Watcher.Namespace, reg)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.Config{
		Logger:   a.log,
		Client:   ws,
		Contract: h,
		Store:    store,
		Metrics:  m,
		Schedule: a.cfg.Watcher.Schedule,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Watcher.MetricsAddress,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: shutdownTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(ctx)
	})

	g.Go(func() error {
		a.log.Info("serving metrics", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		a.log.Info("watcher stopped")
		return nil
	}

	return err
}

func (a *app) reportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report [account]",
		Short: "Print subscribers or account history from the watcher database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := watcher.OpenStore(a.cfg.Watcher.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if len(args) == 0 {
				subs, err := store.Subscribers(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintln(tw, "ACCOUNT\tACTIVE\tDUE\tPAYMENTS\tEMAIL")
				for _, s := range subs {
					fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%s\n",
						address.Uint160ToString(s.Account), s.Active, formatDue(s.Due), s.Payments, s.Email)
				}

				return tw.Flush()
			}

			acc, err := parseAccount(args[0])
			if err != nil {
				return err
			}

			evs, err := store.Events(cmd.Context(), acc)
			if err != nil {
				return err
			}

			fmt.Fprintln(tw, "TX\tEVENT\tAMOUNT\tDUE")
			for _, ev := range evs {
				var amount, due string
				if ev.Amount != nil {
					amount = formatGAS(ev.Amount)
				}
				if ev.Kind != watcher.KindUnsubscribed {
					due = formatDue(ev.Due)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ev.Tx.StringLE(), ev.Kind, amount, due)
			}

			return tw.Flush()
		},
	}
}
