package trader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxhook/broker"
	"fxhook/config"
)

func constantBars(n int, high, low, close float64) []broker.Bar {
	bars := make([]broker.Bar, n)
	for i := range bars {
		bars[i] = broker.Bar{High: high, Low: low, Close: close}
	}
	return bars
}

func TestFixedLevels(t *testing.T) {
	gw := newFakeGateway()
	gw.quotes["EURUSD"] = broker.Quote{Bid: 1.1048, Ask: 1.1050}
	gw.infos["EURUSD"] = broker.SymbolInfo{Symbol: "EURUSD", Point: 0.0001}

	strat := &FixedLevels{gw: gw, stopLossPips: 50, takeProfitPips: 100}

	levels, adjust, err := strat.Compute(broker.Position{Symbol: "EURUSD", Side: broker.PositionLong})
	require.NoError(t, err)
	require.True(t, adjust)
	assert.InDelta(t, 1.1000, levels.StopLoss, 1e-9)
	assert.InDelta(t, 1.1150, levels.TakeProfit, 1e-9)

	levels, adjust, err = strat.Compute(broker.Position{Symbol: "EURUSD", Side: broker.PositionShort})
	require.NoError(t, err)
	require.True(t, adjust)
	assert.InDelta(t, 1.1098, levels.StopLoss, 1e-9)
	assert.InDelta(t, 1.0948, levels.TakeProfit, 1e-9)
}

func TestTrailingLevelsOnlyTightenLong(t *testing.T) {
	gw := newFakeGateway()
	strat := &TrailingLevels{gw: gw, distance: 0.0050, periods: 14}
	pos := broker.Position{Symbol: "EURUSD", Side: broker.PositionLong, StopLoss: 1.0900, TakeProfit: 1.1200}

	// 价格上行，止损上移
	gw.bars["EURUSD"] = constantBars(14, 1.1010, 1.0990, 1.1000)
	levels, adjust, err := strat.Compute(pos)
	require.NoError(t, err)
	require.True(t, adjust)
	assert.InDelta(t, 1.0950, levels.StopLoss, 1e-9)
	assert.Equal(t, 1.1200, levels.TakeProfit, "跟踪止损不动止盈")

	// 连续有利走势下止损单调不减
	pos.StopLoss = levels.StopLoss
	gw.bars["EURUSD"] = constantBars(14, 1.1110, 1.1090, 1.1100)
	levels2, adjust, err := strat.Compute(pos)
	require.NoError(t, err)
	require.True(t, adjust)
	assert.Greater(t, levels2.StopLoss, levels.StopLoss)

	// 价格回落，不放松
	pos.StopLoss = levels2.StopLoss
	gw.bars["EURUSD"] = constantBars(14, 1.1010, 1.0990, 1.1000)
	_, adjust, err = strat.Compute(pos)
	require.NoError(t, err)
	assert.False(t, adjust, "止损只收紧不放松")
}

func TestTrailingLevelsOnlyTightenShort(t *testing.T) {
	gw := newFakeGateway()
	strat := &TrailingLevels{gw: gw, distance: 0.0050, periods: 14}
	pos := broker.Position{Symbol: "EURUSD", Side: broker.PositionShort, StopLoss: 1.1100, TakeProfit: 1.0800}

	// 价格下行，止损下移
	gw.bars["EURUSD"] = constantBars(14, 1.1010, 1.0990, 1.1000)
	levels, adjust, err := strat.Compute(pos)
	require.NoError(t, err)
	require.True(t, adjust)
	assert.InDelta(t, 1.1050, levels.StopLoss, 1e-9)

	// 价格反弹，不放松
	pos.StopLoss = levels.StopLoss
	gw.bars["EURUSD"] = constantBars(14, 1.1090, 1.1070, 1.1080)
	_, adjust, err = strat.Compute(pos)
	require.NoError(t, err)
	assert.False(t, adjust)
}

func TestATRLevels(t *testing.T) {
	gw := newFakeGateway()
	// 恒定波幅1，收盘价10：ma=10, atr=1
	gw.bars["EURUSD"] = constantBars(15, 10.5, 9.5, 10)
	strat := &ATRLevels{gw: gw, periods: 14}

	levels, adjust, err := strat.Compute(broker.Position{Symbol: "EURUSD", Side: broker.PositionLong})
	require.NoError(t, err)
	require.True(t, adjust)
	assert.InDelta(t, 9.0, levels.StopLoss, 1e-9)
	assert.InDelta(t, 11.0, levels.TakeProfit, 1e-9)

	levels, _, err = strat.Compute(broker.Position{Symbol: "EURUSD", Side: broker.PositionShort})
	require.NoError(t, err)
	assert.InDelta(t, 11.0, levels.StopLoss, 1e-9)
	assert.InDelta(t, 9.0, levels.TakeProfit, 1e-9)

	// 历史不足
	gw.bars["EURUSD"] = constantBars(5, 10.5, 9.5, 10)
	_, _, err = strat.Compute(broker.Position{Symbol: "EURUSD", Side: broker.PositionLong})
	assert.Error(t, err)
}

func TestMALevels(t *testing.T) {
	gw := newFakeGateway()
	gw.bars["EURUSD"] = constantBars(14, 10.2, 9.8, 10)
	strat := &MALevels{gw: gw, offset: 0.5, periods: 14}

	levels, adjust, err := strat.Compute(broker.Position{Symbol: "EURUSD", Side: broker.PositionLong})
	require.NoError(t, err)
	require.True(t, adjust)
	assert.InDelta(t, 9.5, levels.StopLoss, 1e-9)
	assert.InDelta(t, 10.5, levels.TakeProfit, 1e-9)
}

func newTestSLTPManager(gw *fakeGateway, cfg config.DynamicSLTPConfig) *SLTPManager {
	retry := NewRetryPolicy(config.RetryConfig{
		MaxAttempts:       5,
		RetryableRetcodes: []int{broker.RetRequote},
	})
	retry.sleep = func(time.Duration) {}

	trading := config.TradingConfig{StopLossPips: 50, TakeProfitPips: 100}
	return NewSLTPManager(gw, retry, trading, cfg)
}

func TestSweepPushesModification(t *testing.T) {
	gw := newFakeGateway()
	gw.quotes["EURUSD"] = broker.Quote{Bid: 1.1048, Ask: 1.1050}
	gw.infos["EURUSD"] = broker.SymbolInfo{Symbol: "EURUSD", Point: 0.0001}
	gw.positions = []broker.Position{
		{Ticket: 61, Symbol: "EURUSD", Side: broker.PositionLong, Volume: 1, Comment: "Long_1"},
	}

	m := newTestSLTPManager(gw, config.DynamicSLTPConfig{Type: "fixed", Periods: 14})
	m.Sweep()

	require.Len(t, gw.modified, 1)
	assert.Equal(t, int64(61), gw.modified[0].ticket)
	assert.InDelta(t, 1.1000, gw.modified[0].sl, 1e-9)
	assert.InDelta(t, 1.1150, gw.modified[0].tp, 1e-9)
}

func TestSweepPerSymbolOverride(t *testing.T) {
	gw := newFakeGateway()
	gw.quotes["GBPUSD"] = broker.Quote{Bid: 1.2700, Ask: 1.2702}
	gw.infos["GBPUSD"] = broker.SymbolInfo{Symbol: "GBPUSD", Point: 0.0001}
	gw.bars["EURUSD"] = constantBars(15, 10.5, 9.5, 10)
	gw.positions = []broker.Position{
		{Ticket: 71, Symbol: "EURUSD", Side: broker.PositionLong, Comment: "Long_1"},
		{Ticket: 72, Symbol: "GBPUSD", Side: broker.PositionLong, Comment: "Long_2"},
	}

	m := newTestSLTPManager(gw, config.DynamicSLTPConfig{
		Type:    "fixed",
		Periods: 14,
		Symbols: map[string]string{"EURUSD": "atr"},
	})
	m.Sweep()

	require.Len(t, gw.modified, 2)
	// EURUSD 走 ATR 策略
	assert.InDelta(t, 9.0, gw.modified[0].sl, 1e-9)
	// GBPUSD 走全局 fixed 策略
	assert.InDelta(t, 1.2652, gw.modified[1].sl, 1e-9)
}

func TestSweepModifyRejectionIsNotEscalated(t *testing.T) {
	gw := newFakeGateway()
	gw.quotes["EURUSD"] = broker.Quote{Bid: 1.1048, Ask: 1.1050}
	gw.infos["EURUSD"] = broker.SymbolInfo{Symbol: "EURUSD", Point: 0.0001}
	gw.positions = []broker.Position{
		{Ticket: 81, Symbol: "EURUSD", Side: broker.PositionLong, Comment: "Long_1"},
		{Ticket: 82, Symbol: "EURUSD", Side: broker.PositionLong, Comment: "Long_2"},
	}
	gw.modifyFn = func(ticket int64, _, _ float64) (broker.OrderResult, error) {
		if ticket == 81 {
			return broker.OrderResult{Retcode: broker.RetInvalidStops}, &broker.RejectError{Retcode: broker.RetInvalidStops}
		}
		return broker.OrderResult{Retcode: broker.RetDone}, nil
	}

	m := newTestSLTPManager(gw, config.DynamicSLTPConfig{Type: "fixed", Periods: 14})
	// 改单被拒只记录，不中断后续持仓
	m.Sweep()

	assert.Len(t, gw.modified, 2)
}

func TestManagerStartStop(t *testing.T) {
	gw := newFakeGateway()
	m := newTestSLTPManager(gw, config.DynamicSLTPConfig{Type: "fixed", Periods: 14, IntervalSeconds: 1})

	m.Start()
	m.Stop()
	// Stop 幂等
	m.Stop()
}
