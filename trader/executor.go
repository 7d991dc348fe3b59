package trader

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fxhook/broker"
	"fxhook/config"
	"fxhook/pkg/logger"
	"fxhook/signal"
)

var (
	// ErrTradingWindowClosed 非交易时段，触发全量平仓而非开仓
	ErrTradingWindowClosed = errors.New("not trading time")

	// ErrMissingOpenTag 信号缺少开仓关联标签
	ErrMissingOpenTag = errors.New("valid open_position tag required")

	// ErrUnsupportedAction 规范化后仍无法识别的动作
	ErrUnsupportedAction = errors.New("action not supported")
)

// execState 单个信号的执行状态，仅用于审计日志
type execState string

const (
	stateEvaluating      execState = "evaluating"
	stateEntering        execState = "entering"
	stateClosingExisting execState = "closing_existing"
	stateBlocked         execState = "blocked"
	stateRejected        execState = "rejected"
	stateIdle            execState = "idle"
)

// Notifier 执行结果通知，只做观测，不影响执行路径
type Notifier interface {
	Send(text string)
}

// Executor 订单执行状态机
// 每个信号作为独立任务异步执行，失败在本层兜底转为日志，绝不向上层透传
type Executor struct {
	gw       broker.Gateway
	retry    *RetryPolicy
	hours    *HoursGate
	closer   *Closer
	trading  config.TradingConfig
	notifier Notifier
	log      *zap.Logger

	// now 可注入，测试时固定时钟
	now func() time.Time
	wg  sync.WaitGroup
}

func NewExecutor(gw broker.Gateway, retry *RetryPolicy, hours *HoursGate, closer *Closer, trading config.TradingConfig, notifier Notifier) *Executor {
	return &Executor{
		gw:       gw,
		retry:    retry,
		hours:    hours,
		closer:   closer,
		trading:  trading,
		notifier: notifier,
		log:      logger.NewModuleLogger("executor"),
		now:      time.Now,
	}
}

// Dispatch 即发即忘地执行信号，返回执行ID
// 调用方立即拿到确认，实际执行结果只通过日志/通知反映
func (e *Executor) Dispatch(sig signal.TradingSignal) string {
	id := uuid.NewString()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("信号执行发生panic",
					zap.String("execution_id", id),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
			}
		}()

		err := e.execute(id, sig)
		e.report(id, sig, err)
	}()

	return id
}

// Wait 等待所有在途执行结束，进程退出时调用
func (e *Executor) Wait() {
	e.wg.Wait()
}

// execute 状态机主体，任何失败都在这里收口
func (e *Executor) execute(id string, sig signal.TradingSignal) error {
	log := e.log.With(zap.String("execution_id", id))
	state := stateEvaluating

	log.Info("开始执行信号",
		zap.String("action", string(sig.Action)),
		zap.String("symbol", sig.Symbol),
		zap.Float64("volume", sig.Volume),
		zap.String("open_position", sig.OpenPosition))

	if !e.hours.IsTradingWindow(e.now()) {
		e.transition(log, &state, stateBlocked)
		// 非交易时段不留任何无人管理的持仓
		e.closer.CloseAll()
		log.Warn("非交易时间，已触发全部平仓")
		return ErrTradingWindowClosed
	}

	if sig.OpenPosition == "" {
		e.transition(log, &state, stateRejected)
		log.Error("缺少有效的 open_position 标签 (如 Long_12345)")
		return ErrMissingOpenTag
	}

	switch sig.Action {
	case signal.ActionBuy:
		e.transition(log, &state, stateEntering)
		if err := e.enter(log, sig, broker.OrderBuy); err != nil {
			return err
		}
	case signal.ActionSell:
		e.transition(log, &state, stateEntering)
		if err := e.enter(log, sig, broker.OrderSell); err != nil {
			return err
		}
	default:
		e.transition(log, &state, stateRejected)
		log.Error("不支持的动作", zap.String("action", string(sig.Action)))
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, sig.Action)
	}

	// 翻仓语义：开新仓与平旧仓相互独立，平旧仓失败不回滚已开仓位
	if sig.PositionClosed != "" {
		e.transition(log, &state, stateClosingExisting)
		if err := e.closer.CloseByTag(sig.PositionClosed); err != nil {
			log.Error("翻仓平旧仓失败",
				zap.String("position_closed", sig.PositionClosed),
				zap.Error(err))
		}
	}

	e.transition(log, &state, stateIdle)
	return nil
}

// enter 提交市价开仓单，报价和请求在每次重试中重新构造
func (e *Executor) enter(log *zap.Logger, sig signal.TradingSignal, side broker.OrderSide) error {
	opName := "enter_long"
	if side == broker.OrderSell {
		opName = "enter_short"
	}

	res, err := e.retry.Do(opName, func() (broker.OrderResult, error) {
		quote, err := e.gw.Quote(sig.Symbol)
		if err != nil {
			return broker.OrderResult{}, fmt.Errorf("获取报价失败: %w", err)
		}
		info, err := e.gw.SymbolInfo(sig.Symbol)
		if err != nil {
			return broker.OrderResult{}, fmt.Errorf("获取品种信息失败: %w", err)
		}

		var price, sl, tp float64
		if side == broker.OrderBuy {
			price = quote.Ask
			sl = price - e.trading.StopLossPips*info.Point
			tp = price + e.trading.TakeProfitPips*info.Point
		} else {
			price = quote.Bid
			sl = price + e.trading.StopLossPips*info.Point
			tp = price - e.trading.TakeProfitPips*info.Point
		}

		req := broker.OrderRequest{
			Symbol:      sig.Symbol,
			Side:        side,
			Volume:      sig.Volume,
			Price:       price,
			StopLoss:    sl,
			TakeProfit:  tp,
			Deviation:   e.trading.Deviation,
			Magic:       e.trading.MagicNumber,
			Comment:     sig.OpenPosition,
			TimeInForce: broker.TimeGTC,
			FillPolicy:  broker.FillIOC,
		}
		return e.gw.SubmitOrder(req)
	})
	if err != nil {
		log.Error("开仓失败", zap.String("op", opName), zap.Error(err))
		return err
	}

	log.Info("✅ 开仓成功",
		zap.String("op", opName),
		zap.String("tag", sig.OpenPosition),
		zap.Int64("ticket", res.Ticket),
		zap.Float64("price", res.FilledPrice))
	return nil
}

// report 完成回调，只做观测
func (e *Executor) report(id string, sig signal.TradingSignal, err error) {
	if err != nil {
		e.log.Error("信号执行失败",
			zap.String("execution_id", id),
			zap.String("action", string(sig.Action)),
			zap.String("symbol", sig.Symbol),
			zap.Error(err))
		e.notify(fmt.Sprintf("❌ %s %s %s 执行失败: %v", sig.Action, sig.Symbol, sig.OpenPosition, err))
		return
	}

	e.log.Info("信号执行完成",
		zap.String("execution_id", id),
		zap.String("action", string(sig.Action)),
		zap.String("symbol", sig.Symbol))
	e.notify(fmt.Sprintf("✅ %s %s %s 执行完成", sig.Action, sig.Symbol, sig.OpenPosition))
}

func (e *Executor) notify(text string) {
	if e.notifier != nil {
		e.notifier.Send(text)
	}
}

func (e *Executor) transition(log *zap.Logger, state *execState, next execState) {
	log.Debug("状态迁移",
		zap.String("from", string(*state)),
		zap.String("to", string(next)))
	*state = next
}
