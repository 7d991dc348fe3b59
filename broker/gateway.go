package broker

// Gateway 交易网关统一接口
// 引擎只依赖这组能力，会话由进程启动时建立、退出时关闭
type Gateway interface {
	// Initialize 建立会话并登录交易账户
	Initialize(creds Credentials) error

	// Shutdown 关闭会话
	Shutdown()

	// Quote 获取最新买卖报价
	Quote(symbol string) (Quote, error)

	// SymbolInfo 获取品种元数据（point 等）
	SymbolInfo(symbol string) (SymbolInfo, error)

	// SubmitOrder 提交市价单，拒单以 *RejectError 返回
	SubmitOrder(req OrderRequest) (OrderResult, error)

	// ModifyPosition 修改持仓的止损/止盈价
	ModifyPosition(ticket int64, stopLoss, takeProfit float64) (OrderResult, error)

	// OpenPositions 枚举当前全部持仓
	OpenPositions() ([]Position, error)

	// PriceHistory 获取最近 count 根K线，按时间升序，最新在最后
	PriceHistory(symbol string, tf Timeframe, count int) ([]Bar, error)
}
