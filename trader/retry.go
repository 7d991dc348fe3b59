package trader

import (
	"time"

	"go.uber.org/zap"

	"fxhook/broker"
	"fxhook/config"
	"fxhook/pkg/logger"
)

// RetryPolicy 网关边界调用的有界固定间隔重试
// 每个逻辑操作独立计数，最终失败时原样上抛最后一次错误
type RetryPolicy struct {
	maxAttempts int
	delay       time.Duration
	retryable   map[int]bool
	log         *zap.Logger

	// sleep 可注入，测试时替换掉真实等待
	sleep func(time.Duration)
}

func NewRetryPolicy(cfg config.RetryConfig) *RetryPolicy {
	retryable := make(map[int]bool, len(cfg.RetryableRetcodes))
	for _, code := range cfg.RetryableRetcodes {
		retryable[code] = true
	}
	return &RetryPolicy{
		maxAttempts: cfg.MaxAttempts,
		delay:       cfg.Delay(),
		retryable:   retryable,
		log:         logger.NewModuleLogger("retry"),
		sleep:       time.Sleep,
	}
}

// IsTransient 判断错误是否为瞬时拒单
// 只有网关拒单且返回码在配置的白名单内才重试，
// 资金不足、手数非法一类的永久性拒单直接失败
func (p *RetryPolicy) IsTransient(err error) bool {
	reject, ok := broker.AsReject(err)
	if !ok {
		return false
	}
	return p.retryable[reject.Retcode]
}

// Do 执行 op，瞬时失败时固定间隔重试，总次数不超过 maxAttempts
func (p *RetryPolicy) Do(name string, op func() (broker.OrderResult, error)) (broker.OrderResult, error) {
	var res broker.OrderResult
	var err error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		res, err = op()
		if err == nil {
			return res, nil
		}
		if !p.IsTransient(err) {
			return res, err
		}

		p.log.Warn("🔁 瞬时失败，准备重试",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.maxAttempts),
			zap.Error(err))

		if attempt < p.maxAttempts {
			p.sleep(p.delay)
		}
	}

	return res, err
}
