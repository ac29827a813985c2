package watcher

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func subscribedEvent(tx byte, acc util.Uint160, due int64) Event {
	return Event{
		Tx:        util.Uint256{tx},
		Kind:      KindSubscribed,
		Account:   acc,
		Due:       due,
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
	}
}

func TestOpenStore(t *testing.T) {
	_, err := OpenStore("")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "events.db")
	acc := util.Uint160{1}

	s, err := OpenStore(path)
	require.NoError(t, err)
	_, err = s.Apply(context.Background(), subscribedEvent(1, acc, 60))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	subs, err := s.Subscribers(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, acc, subs[0].Account)
}

func TestStoreApply(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice, bob := util.Uint160{1}, util.Uint160{2}

	ok, err := s.Apply(ctx, subscribedEvent(1, alice, 60))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Apply(ctx, subscribedEvent(1, alice, 60))
	require.NoError(t, err)
	require.False(t, ok, "replayed notification must be ignored")

	_, err = s.Apply(ctx, subscribedEvent(2, bob, 70))
	require.NoError(t, err)

	_, err = s.Apply(ctx, Event{Tx: util.Uint256{3}, Kind: KindPayment, Account: alice, Amount: big.NewInt(100), Due: 120})
	require.NoError(t, err)

	_, err = s.Apply(ctx, Event{Tx: util.Uint256{4}, Kind: KindUnsubscribed, Account: bob})
	require.NoError(t, err)

	subs, err := s.Subscribers(ctx)
	require.NoError(t, err)
	require.Equal(t, []Subscriber{
		{Account: alice, Active: true, Due: 120, Email: "alice@example.com", FirstName: "Alice", LastName: "Smith", Payments: 2},
		{Account: bob, Active: false, Due: 70, Email: "alice@example.com", FirstName: "Alice", LastName: "Smith", Payments: 1},
	}, subs)

	evs, err := s.Events(ctx, alice)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	require.Equal(t, KindSubscribed, evs[0].Kind)
	require.Nil(t, evs[0].Amount)
	require.Equal(t, KindPayment, evs[1].Kind)
	require.Equal(t, big.NewInt(100), evs[1].Amount)
	require.Equal(t, util.Uint256{3}, evs[1].Tx)

	_, err = s.Apply(ctx, Event{Tx: util.Uint256{5}, Kind: "Transfer", Account: alice})
	require.Error(t, err)

	evs, err = s.Events(ctx, alice)
	require.NoError(t, err)
	require.Len(t, evs, 2, "failed event must be rolled back")
}

func TestStoreResubscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	acc := util.Uint160{1}

	_, err := s.Apply(ctx, subscribedEvent(1, acc, 60))
	require.NoError(t, err)
	_, err = s.Apply(ctx, Event{Tx: util.Uint256{2}, Kind: KindUnsubscribed, Account: acc})
	require.NoError(t, err)

	ev := subscribedEvent(3, acc, 300)
	ev.Email = "new@example.com"
	_, err = s.Apply(ctx, ev)
	require.NoError(t, err)

	subs, err := s.Subscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.True(t, subs[0].Active)
	require.Equal(t, int64(300), subs[0].Due)
	require.Equal(t, "new@example.com", subs[0].Email)
	require.Equal(t, int64(2), subs[0].Payments)
}

func TestStoreCountActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	active, overdue, err := s.CountActive(ctx, 100)
	require.NoError(t, err)
	require.Zero(t, active)
	require.Zero(t, overdue)

	for i, due := range []int64{50, 100, 150} {
		_, err = s.Apply(ctx, subscribedEvent(byte(i+1), util.Uint160{byte(i + 1)}, due))
		require.NoError(t, err)
	}
	_, err = s.Apply(ctx, Event{Tx: util.Uint256{9}, Kind: KindUnsubscribed, Account: util.Uint160{1}})
	require.NoError(t, err)

	active, overdue, err = s.CountActive(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, 2, active)
	require.Equal(t, 1, overdue)
}

func TestNilStore(t *testing.T) {
	var s *Store
	require.NoError(t, s.Close())
	_, err := s.Apply(context.Background(), Event{})
	require.ErrorIs(t, err, errNoStore)
	_, _, err = s.CountActive(context.Background(), 0)
	require.ErrorIs(t, err, errNoStore)
}
