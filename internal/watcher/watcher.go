/*
Package watcher follows notifications of the deployed Subscription contract,
keeps them in SQLite database and exports subscriber statistics to
Prometheus.
*/
package watcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	rpcsub "github.com/gabrielajasnosz/subscriptions-contract/rpc/subscription"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSchedule is a cron schedule of the subscriber statistics refresh.
const DefaultSchedule = "@every 1m"

// Client is a WebSocket RPC client subscribing to transaction executions.
// It's implemented by *rpcclient.WSClient.
type Client interface {
	ReceiveExecutions(flt *neorpc.ExecutionFilter, rcvr chan<- *state.AppExecResult) (string, error)
	Unsubscribe(id string) error
}

// Config groups Watcher parameters.
type Config struct {
	Logger *zap.Logger

	Client Client
	// Address of the followed Subscription contract.
	Contract util.Uint160

	Store   *Store
	Metrics *Metrics

	// Cron schedule of subscriber statistics refresh. Defaults to
	// DefaultSchedule.
	Schedule string
	// Current time source. Defaults to time.Now.
	Clock func() time.Time
}

// Watcher stores Subscription contract notifications received from the
// Client.
type Watcher struct {
	log      *zap.Logger
	client   Client
	contract util.Uint160
	store    *Store
	metrics  *Metrics
	schedule string
	clock    func() time.Time
}

var errConnectionLost = errors.New("notification channel is closed")

// New validates cfg and constructs Watcher.
func New(cfg Config) (*Watcher, error) {
	switch {
	case cfg.Client == nil:
		return nil, errors.New("missing RPC client")
	case cfg.Store == nil:
		return nil, errNoStore
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	return &Watcher{
		log:      cfg.Logger,
		client:   cfg.Client,
		contract: cfg.Contract,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		schedule: cfg.Schedule,
		clock:    cfg.Clock,
	}, nil
}

// Run subscribes to successful transaction executions and processes
// notifications of the contract until ctx is done or the client drops the
// subscription.
func (w *Watcher) Run(ctx context.Context) error {
	ch := make(chan *state.AppExecResult, 16)
	halt := vmstate.Halt.String()

	id, err := w.client.ReceiveExecutions(&neorpc.ExecutionFilter{State: &halt}, ch)
	if err != nil {
		return fmt.Errorf("subscribe to executions: %w", err)
	}

	c := cron.New()
	_, err = c.AddFunc(w.schedule, func() {
		if err := w.Refresh(ctx); err != nil {
			w.log.Warn("failed to refresh subscriber statistics", zap.Error(err))
		}
	})
	if err != nil {
		_ = w.client.Unsubscribe(id)
		return fmt.Errorf("schedule refresh: %w", err)
	}

	c.Start()
	defer c.Stop()

	if err := w.Refresh(ctx); err != nil {
		w.log.Warn("failed to refresh subscriber statistics", zap.Error(err))
	}

	w.log.Info("watching contract notifications", zap.Stringer("contract", w.contract))

	for {
		select {
		case <-ctx.Done():
			if err := w.client.Unsubscribe(id); err != nil {
				w.log.Debug("failed to unsubscribe", zap.Error(err))
			}
			return ctx.Err()
		case res, ok := <-ch:
			if !ok {
				return errConnectionLost
			}

			if err := w.Handle(ctx, res); err != nil {
				return err
			}
		}
	}
}

// Handle decodes and stores notifications of the contract produced by the
// transaction execution. Malformed notifications are logged and skipped;
// storage failures are returned. Repeated delivery of the same execution
// doesn't change the stored state.
func (w *Watcher) Handle(ctx context.Context, res *state.AppExecResult) error {
	for i := range res.Events {
		n := &res.Events[i]
		if !n.ScriptHash.Equals(w.contract) {
			continue
		}

		if err := w.handleNotification(ctx, res.Container, i, n); err != nil {
			return err
		}
	}

	return nil
}

func (w *Watcher) handleNotification(ctx context.Context, tx util.Uint256, index int, n *state.NotificationEvent) error {
	ev, err := decode(n)
	if err != nil {
		w.metrics.observeDecodeError()
		w.log.Warn("skip malformed notification",
			zap.String("name", n.Name), zap.Stringer("tx", tx), zap.Error(err))
		return nil
	}

	ev.Tx, ev.Index = tx, index

	stored, err := w.store.Apply(ctx, ev)
	if err != nil {
		return fmt.Errorf("store %s notification from %s: %w", ev.Kind, tx.StringLE(), err)
	}

	if !stored {
		w.metrics.observeReplay()
		w.log.Debug("notification is already stored",
			zap.String("name", n.Name), zap.Stringer("tx", tx), zap.Int("index", index))
		return nil
	}

	w.metrics.observeEvent(ev.Kind)
	w.log.Info("subscription event",
		zap.String("name", n.Name),
		zap.Stringer("account", ev.Account),
		zap.Int64("due", ev.Due),
		zap.Stringer("tx", tx))

	return nil
}

// Refresh recalculates subscriber statistics at the current time.
func (w *Watcher) Refresh(ctx context.Context) error {
	active, overdue, err := w.store.CountActive(ctx, w.clock().Unix())
	if err != nil {
		return err
	}

	w.metrics.setSubscribers(active, overdue)

	w.log.Debug("subscriber statistics refreshed", zap.Int("active", active), zap.Int("overdue", overdue))

	return nil
}

func decode(n *state.NotificationEvent) (Event, error) {
	ev := Event{Kind: Kind(n.Name)}
	if n.Item == nil {
		return ev, errors.New("missing notification parameters")
	}

	switch ev.Kind {
	case KindSubscribed:
		var e rpcsub.SubscribedEvent
		if err := e.FromStackItem(n.Item); err != nil {
			return ev, err
		}
		ev.Account = e.Account
		ev.Due = e.SubscriptionDue.Int64()
		ev.Email, ev.FirstName, ev.LastName = e.Email, e.FirstName, e.LastName
	case KindUnsubscribed:
		var e rpcsub.UnsubscribedEvent
		if err := e.FromStackItem(n.Item); err != nil {
			return ev, err
		}
		ev.Account = e.Account
	case KindPayment:
		var e rpcsub.PaymentEvent
		if err := e.FromStackItem(n.Item); err != nil {
			return ev, err
		}
		ev.Account = e.Account
		ev.Amount = new(big.Int).Set(e.Amount)
		ev.Due = e.SubscriptionDue.Int64()
	default:
		return ev, fmt.Errorf("unexpected notification %q", n.Name)
	}

	return ev, nil
}
