package broker

// OrderSide 订单方向
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// Opposite 返回反向，平仓单使用
func (s OrderSide) Opposite() OrderSide {
	if s == OrderBuy {
		return OrderSell
	}
	return OrderBuy
}

// PositionSide 持仓方向
type PositionSide string

const (
	PositionLong  PositionSide = "LONG"
	PositionShort PositionSide = "SHORT"
)

// FillPolicy 成交策略
type FillPolicy string

const (
	FillIOC FillPolicy = "IOC" // 开仓使用
	FillFOK FillPolicy = "FOK" // 平仓使用
)

// TimeInForce 订单有效期
type TimeInForce string

const (
	TimeGTC TimeInForce = "GTC"
)

// Timeframe K线周期
type Timeframe string

const (
	TimeframeD1 Timeframe = "D1"
	TimeframeH1 Timeframe = "H1"
)

// 网关返回码（MT5 兼容）
const (
	RetRequote       = 10004
	RetDone          = 10009
	RetTimeout       = 10012
	RetInvalidVolume = 10014
	RetInvalidStops  = 10016
	RetMarketClosed  = 10018
	RetNoMoney       = 10019
	RetPriceChanged  = 10020
	RetPriceOff      = 10021
)

// Quote 最新报价
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// SymbolInfo 品种元数据
type SymbolInfo struct {
	Symbol string  `json:"symbol"`
	Point  float64 `json:"point"` // 最小报价单位，pip 换算用
	Digits int     `json:"digits"`
}

// OrderRequest 单次下单意图，每次尝试重新构造
type OrderRequest struct {
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Volume      float64     `json:"volume"`
	Price       float64     `json:"price"`
	StopLoss    float64     `json:"sl,omitempty"`
	TakeProfit  float64     `json:"tp,omitempty"`
	Deviation   int         `json:"deviation"`
	Magic       int         `json:"magic"`
	Comment     string      `json:"comment"` // 关联标签，平仓查找用
	TimeInForce TimeInForce `json:"type_time"`
	FillPolicy  FillPolicy  `json:"type_filling"`
	Position    int64       `json:"position,omitempty"` // 平仓时指向原持仓票号
}

// OrderResult 网关下单/改单结果
type OrderResult struct {
	Retcode     int     `json:"retcode"`
	Comment     string  `json:"comment,omitempty"`
	FilledPrice float64 `json:"price,omitempty"`
	Ticket      int64   `json:"ticket,omitempty"`
}

// Done 是否成交完成
func (r OrderResult) Done() bool {
	return r.Retcode == RetDone
}

// Position 网关持仓快照，本引擎只读不造
type Position struct {
	Ticket    int64        `json:"ticket"`
	Symbol    string       `json:"symbol"`
	Side      PositionSide `json:"side"`
	Volume    float64      `json:"volume"`
	Comment   string       `json:"comment"` // 开仓时写入的关联标签
	OpenPrice float64      `json:"open_price"`
	// 当前保护价位，网关为唯一事实来源，引擎不留长期副本
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
}

// Bar 历史K线
type Bar struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Credentials 网关登录凭证
type Credentials struct {
	Login    int64
	Password string
	Server   string
}
