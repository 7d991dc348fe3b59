package trader

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"fxhook/config"
	"fxhook/pkg/logger"
)

// HoursGate 交易时段闸门
// 规则：本地时间为周六/周日休市；维护时段 [start, end) 内禁止开仓
// 除打印判定结果外无副作用，相同输入恒定得到相同输出
type HoursGate struct {
	loc       *time.Location
	startHour int
	endHour   int
	log       *zap.Logger
}

func NewHoursGate(cfg config.TradingHoursConfig) (*HoursGate, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败 %q: %w", cfg.Timezone, err)
	}
	return &HoursGate{
		loc:       loc,
		startHour: cfg.MaintStartHour,
		endHour:   cfg.MaintEndHour,
		log:       logger.NewModuleLogger("hours"),
	}, nil
}

// IsTradingWindow 判断当前是否允许开新仓
func (g *HoursGate) IsTradingWindow(now time.Time) bool {
	local := now.In(g.loc)
	weekday := local.Weekday()
	hour := local.Hour()

	if weekday == time.Saturday || weekday == time.Sunday {
		g.log.Info("非交易时间", zap.String("weekday", weekday.String()))
		return false
	}
	if hour >= g.startHour && hour < g.endHour {
		g.log.Info("非交易时间（维护时段）", zap.Int("hour", hour))
		return false
	}

	g.log.Debug("正常交易中", zap.Int("hour", hour))
	return true
}
