package trader

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fxhook/broker"
	"fxhook/config"
	"fxhook/market"
	"fxhook/pkg/logger"
)

// ProtectiveLevels 一对止损/止盈价位
// 网关是唯一事实来源，这里只是单次计算的结果，不跨轮保存
type ProtectiveLevels struct {
	StopLoss   float64
	TakeProfit float64
}

// LevelStrategy 可互换的保护价位策略
type LevelStrategy interface {
	Name() string
	// Compute 重算持仓的保护价位，adjust=false 表示本轮不需要调整
	Compute(pos broker.Position) (levels ProtectiveLevels, adjust bool, err error)
}

// FixedLevels 固定点数策略：当前报价 ± 配置的点数距离
type FixedLevels struct {
	gw             broker.Gateway
	stopLossPips   float64
	takeProfitPips float64
}

func (f *FixedLevels) Name() string { return "fixed" }

func (f *FixedLevels) Compute(pos broker.Position) (ProtectiveLevels, bool, error) {
	quote, err := f.gw.Quote(pos.Symbol)
	if err != nil {
		return ProtectiveLevels{}, false, err
	}
	info, err := f.gw.SymbolInfo(pos.Symbol)
	if err != nil {
		return ProtectiveLevels{}, false, err
	}

	if pos.Side == broker.PositionLong {
		ref := quote.Ask
		return ProtectiveLevels{
			StopLoss:   ref - f.stopLossPips*info.Point,
			TakeProfit: ref + f.takeProfitPips*info.Point,
		}, true, nil
	}
	ref := quote.Bid
	return ProtectiveLevels{
		StopLoss:   ref + f.stopLossPips*info.Point,
		TakeProfit: ref - f.takeProfitPips*info.Point,
	}, true, nil
}

// TrailingLevels 跟踪止损：只收紧，永不放松
// 多仓止损只升不降，空仓止损只降不升，止盈保持不变
type TrailingLevels struct {
	gw       broker.Gateway
	distance float64
	periods  int
}

func (t *TrailingLevels) Name() string { return "trailing" }

func (t *TrailingLevels) Compute(pos broker.Position) (ProtectiveLevels, bool, error) {
	bars, err := t.gw.PriceHistory(pos.Symbol, broker.TimeframeD1, t.periods)
	if err != nil {
		return ProtectiveLevels{}, false, err
	}
	if len(bars) == 0 {
		return ProtectiveLevels{}, false, fmt.Errorf("无可用历史K线: %s", pos.Symbol)
	}
	last := bars[len(bars)-1].Close

	if pos.Side == broker.PositionLong {
		newSL := last - t.distance
		if newSL > pos.StopLoss {
			return ProtectiveLevels{StopLoss: newSL, TakeProfit: pos.TakeProfit}, true, nil
		}
		return ProtectiveLevels{}, false, nil
	}

	newSL := last + t.distance
	if pos.StopLoss != 0 && newSL < pos.StopLoss {
		return ProtectiveLevels{StopLoss: newSL, TakeProfit: pos.TakeProfit}, true, nil
	}
	return ProtectiveLevels{}, false, nil
}

// ATRLevels 波动率策略：均线锚点 ± 平均真实波幅
type ATRLevels struct {
	gw      broker.Gateway
	periods int
}

func (a *ATRLevels) Name() string { return "atr" }

func (a *ATRLevels) Compute(pos broker.Position) (ProtectiveLevels, bool, error) {
	bars, err := a.gw.PriceHistory(pos.Symbol, broker.TimeframeD1, a.periods+1)
	if err != nil {
		return ProtectiveLevels{}, false, err
	}

	ma := market.CalculateSMA(market.Closes(bars), a.periods)
	atr := market.CalculateATR(bars, a.periods)
	if ma == 0 || atr == 0 {
		return ProtectiveLevels{}, false, fmt.Errorf("历史K线不足以计算 ATR: %s", pos.Symbol)
	}

	if pos.Side == broker.PositionLong {
		return ProtectiveLevels{StopLoss: ma - atr, TakeProfit: ma + atr}, true, nil
	}
	return ProtectiveLevels{StopLoss: ma + atr, TakeProfit: ma - atr}, true, nil
}

// MALevels 趋势策略：均线锚点 ± 固定偏移
type MALevels struct {
	gw      broker.Gateway
	offset  float64
	periods int
}

func (m *MALevels) Name() string { return "ma" }

func (m *MALevels) Compute(pos broker.Position) (ProtectiveLevels, bool, error) {
	bars, err := m.gw.PriceHistory(pos.Symbol, broker.TimeframeD1, m.periods)
	if err != nil {
		return ProtectiveLevels{}, false, err
	}

	ma := market.CalculateSMA(market.Closes(bars), m.periods)
	if ma == 0 {
		return ProtectiveLevels{}, false, fmt.Errorf("历史K线不足以计算均线: %s", pos.Symbol)
	}

	if pos.Side == broker.PositionLong {
		return ProtectiveLevels{StopLoss: ma - m.offset, TakeProfit: ma + m.offset}, true, nil
	}
	return ProtectiveLevels{StopLoss: ma + m.offset, TakeProfit: ma - m.offset}, true, nil
}

// SLTPManager 周期性巡检持仓，按配置的策略重算并推送保护价位
type SLTPManager struct {
	gw         broker.Gateway
	retry      *RetryPolicy
	cfg        config.DynamicSLTPConfig
	strategies map[string]LevelStrategy
	log        *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSLTPManager(gw broker.Gateway, retry *RetryPolicy, trading config.TradingConfig, cfg config.DynamicSLTPConfig) *SLTPManager {
	return &SLTPManager{
		gw:    gw,
		retry: retry,
		cfg:   cfg,
		strategies: map[string]LevelStrategy{
			"fixed":    &FixedLevels{gw: gw, stopLossPips: trading.StopLossPips, takeProfitPips: trading.TakeProfitPips},
			"trailing": &TrailingLevels{gw: gw, distance: cfg.TrailingDistance, periods: cfg.Periods},
			"atr":      &ATRLevels{gw: gw, periods: cfg.Periods},
			"ma":       &MALevels{gw: gw, offset: cfg.MAOffset, periods: cfg.Periods},
		},
		log:    logger.NewModuleLogger("sltp"),
		stopCh: make(chan struct{}),
	}
}

// Start 启动巡检goroutine，周期为 0 时不启动
func (m *SLTPManager) Start() {
	interval := m.cfg.Interval()
	if interval <= 0 {
		m.log.Info("止损止盈巡检未启用")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.log.Info("止损止盈巡检已启动", zap.Duration("interval", interval))
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Stop 停止巡检并等待当前一轮结束
func (m *SLTPManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// Sweep 对全部持仓做一轮保护价位重算，可按需单独调用
func (m *SLTPManager) Sweep() {
	positions, err := m.gw.OpenPositions()
	if err != nil {
		m.log.Error("无法获取持仓列表", zap.Error(err))
		return
	}

	for _, pos := range positions {
		m.apply(pos)
	}
}

func (m *SLTPManager) apply(pos broker.Position) {
	name := m.cfg.StrategyFor(pos.Symbol)
	strat, ok := m.strategies[name]
	if !ok {
		m.log.Error("未知的止损止盈策略类型", zap.String("type", name), zap.String("symbol", pos.Symbol))
		return
	}

	levels, adjust, err := strat.Compute(pos)
	if err != nil {
		m.log.Error("计算保护价位失败",
			zap.String("strategy", strat.Name()),
			zap.String("symbol", pos.Symbol),
			zap.Error(err))
		return
	}
	if !adjust {
		return
	}

	// 保护价位更新是尽力而为，改单被拒只记录不升级
	_, err = m.retry.Do("modify_sltp", func() (broker.OrderResult, error) {
		return m.gw.ModifyPosition(pos.Ticket, levels.StopLoss, levels.TakeProfit)
	})
	if err != nil {
		m.log.Error("修改止损止盈失败",
			zap.String("strategy", strat.Name()),
			zap.Int64("ticket", pos.Ticket),
			zap.Error(err))
		return
	}

	m.log.Info("已更新止损止盈",
		zap.String("strategy", strat.Name()),
		zap.String("symbol", pos.Symbol),
		zap.Int64("ticket", pos.Ticket),
		zap.Float64("sl", levels.StopLoss),
		zap.Float64("tp", levels.TakeProfit))
}
