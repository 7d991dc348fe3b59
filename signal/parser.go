package signal

import (
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"fxhook/pkg/logger"
)

// 信号文法：key=value 以分号分隔，position_closed 的值可为空
var signalPattern = regexp.MustCompile(`^action=(\w+);symbol=([\w/]+);volume=([^;]*);open_position=([^;]*);position_closed=(\w+_\d+)?`)

// Parser webhook 信号解析器
type Parser struct {
	log *zap.Logger
}

func NewParser() *Parser {
	return &Parser{log: logger.NewModuleLogger("signal")}
}

// Parse 结构化解析原始 webhook 内容
// 不符合文法或手数非正数时返回 ErrMalformedSignal，动作别名在这里一并规范化
func (p *Parser) Parse(raw []byte) (TradingSignal, error) {
	m := signalPattern.FindStringSubmatch(string(raw))
	if m == nil {
		p.log.Error("❌ 无效的webhook数据", zap.ByteString("raw", raw))
		return TradingSignal{}, fmt.Errorf("%w: %q", ErrMalformedSignal, string(raw))
	}

	volume, err := strconv.ParseFloat(m[3], 64)
	if err != nil || volume <= 0 {
		p.log.Error("❌ 无效的手数", zap.String("volume", m[3]))
		return TradingSignal{}, fmt.Errorf("%w: bad volume %q", ErrMalformedSignal, m[3])
	}

	sig := TradingSignal{
		Action:         Action(m[1]),
		Symbol:         m[2],
		Volume:         volume,
		OpenPosition:   m[4],
		PositionClosed: m[5],
	}.Normalize()

	p.log.Info("解析信号成功",
		zap.String("action", string(sig.Action)),
		zap.String("symbol", sig.Symbol),
		zap.Float64("volume", sig.Volume),
		zap.String("open_position", sig.OpenPosition),
		zap.String("position_closed", sig.PositionClosed))

	return sig, nil
}
