package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallet(t *testing.T) {
	prices := []float64{100, 110}

	t.Run("unknown tier", func(t *testing.T) {
		w := NewWallet(1000)
		_, err := w.Position("x9")
		assert.ErrorIs(t, err, ErrUnknownTier)
	})

	t.Run("spend over cash", func(t *testing.T) {
		w := NewWallet(1000)
		assert.ErrorIs(t, w.Spend(1001), ErrCapitalLimit)
		require.NoError(t, w.Spend(400))
		assert.InDelta(t, 600, w.Cash, 1e-9)
	})

	t.Run("totals across positions", func(t *testing.T) {
		w := NewWallet(1000)
		p := NewPosition("x2", prices, -1, YieldNone, -1, nil)
		w.AddPosition("x2", p)
		_, _, err := p.CashBuy(500, 0, 0)
		require.NoError(t, err)
		require.NoError(t, w.Spend(500))

		assert.InDelta(t, 500, w.TotalInvested(), 1e-9)
		assert.InDelta(t, 500+550, w.TotalValue(1), 1e-9)
	})

	t.Run("snapshot copies lots", func(t *testing.T) {
		w := NewWallet(1000)
		p := NewPosition("x2", prices, -1, YieldNone, -1, nil)
		w.AddPosition("x2", p)
		_, _, err := p.CashBuy(500, 0, 0)
		require.NoError(t, err)
		require.NoError(t, w.Spend(500))
		w.TrackBuy("x2", 0)

		res := w.Snapshot(1)
		require.Len(t, res.Positions["x2"].Lots, 1)
		require.Len(t, res.BuyEvents, 1)
		assert.InDelta(t, 550, res.Positions["x2"].MarketValue, 1e-9)
		assert.InDelta(t, 1050, res.GrossValue(), 1e-9)
	})
}
