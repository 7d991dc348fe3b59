package trader

import (
	"fmt"

	"go.uber.org/zap"

	"fxhook/broker"
	"fxhook/config"
	"fxhook/pkg/logger"
)

// Closer 按关联标签平仓
type Closer struct {
	gw    broker.Gateway
	retry *RetryPolicy
	cfg   config.TradingConfig
	log   *zap.Logger
}

func NewCloser(gw broker.Gateway, retry *RetryPolicy, cfg config.TradingConfig) *Closer {
	return &Closer{
		gw:    gw,
		retry: retry,
		cfg:   cfg,
		log:   logger.NewModuleLogger("closer"),
	}
}

// CloseByTag 查找标签对应的持仓并反向平掉
// 找不到时返回 ErrPositionNotFound，不会发出任何下单请求
func (c *Closer) CloseByTag(tag string) error {
	positions, err := c.gw.OpenPositions()
	if err != nil {
		return fmt.Errorf("获取持仓失败: %w", err)
	}

	var target *broker.Position
	for i := range positions {
		if positions[i].Comment == tag {
			target = &positions[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s", broker.ErrPositionNotFound, tag)
	}

	// 平仓请求每次尝试都重新取价重新构造
	res, err := c.retry.Do("close_position", func() (broker.OrderResult, error) {
		quote, err := c.gw.Quote(target.Symbol)
		if err != nil {
			return broker.OrderResult{}, err
		}

		// 多仓以 bid 卖出，空仓以 ask 买回
		side := broker.OrderSell
		price := quote.Bid
		if target.Side == broker.PositionShort {
			side = broker.OrderBuy
			price = quote.Ask
		}

		req := broker.OrderRequest{
			Symbol: target.Symbol,
			Side:   side,
			Volume: target.Volume,
			Price:  price,
			// 平仓允许更大滑点，宁可成交差价也不能平不掉
			Deviation:   c.cfg.CloseDeviation,
			Magic:       c.cfg.MagicNumber,
			Comment:     fmt.Sprintf("closed %d", target.Ticket),
			TimeInForce: broker.TimeGTC,
			FillPolicy:  broker.FillFOK,
			Position:    target.Ticket,
		}
		return c.gw.SubmitOrder(req)
	})
	if err != nil {
		return fmt.Errorf("平仓 %s 失败: %w", tag, err)
	}

	c.log.Info("✅ 平仓成功",
		zap.String("tag", tag),
		zap.Int64("ticket", target.Ticket),
		zap.Float64("price", res.FilledPrice))
	return nil
}

// CloseAll 平掉全部持仓，非交易时段闸门触发
// 先对持仓列表做一次快照再逐个平仓，单个失败不中断其余持仓的处理
func (c *Closer) CloseAll() {
	snapshot, err := c.gw.OpenPositions()
	if err != nil {
		c.log.Error("无法获取持仓列表", zap.Error(err))
		return
	}

	for _, pos := range snapshot {
		if err := c.CloseByTag(pos.Comment); err != nil {
			// 快照之后持仓可能已经变化，逐个失败只记录继续
			c.log.Error("平仓失败，继续处理剩余持仓",
				zap.String("tag", pos.Comment),
				zap.Int64("ticket", pos.Ticket),
				zap.Error(err))
		}
	}
}
