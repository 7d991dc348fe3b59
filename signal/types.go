package signal

import (
	"errors"
	"strings"
)

// ErrMalformedSignal webhook 内容不符合信号文法
var ErrMalformedSignal = errors.New("malformed signal payload")

// Action 规范化后的交易动作
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionClose Action = "CLOSE"
)

// TradingSignal 从 webhook 解析出的交易信号，值类型，解析后不再修改
type TradingSignal struct {
	Action         Action  // 规范化前可能是任意原始字符串，由执行引擎判定是否支持
	Symbol         string  // 品种，如 EURUSD
	Volume         float64 // 手数，必须为正
	OpenPosition   string  // 开仓关联标签，如 Long_1
	PositionClosed string  // 可选：开仓同时要平掉的旧仓标签（翻仓语义）
}

// Normalize 映射动作别名，返回新值
// enter_long/buy -> BUY，enter_short/sell -> SELL，其余原样透传，
// 未识别的动作留给执行引擎拒绝，解析层不做判断
func (s TradingSignal) Normalize() TradingSignal {
	switch strings.ToLower(string(s.Action)) {
	case "enter_long", "buy":
		s.Action = ActionBuy
	case "enter_short", "sell":
		s.Action = ActionSell
	}
	return s
}
