package market

import "fxhook/broker"

// CalculateSMA 计算简单移动平均的最新值
// data: 价格序列 (按时间顺序，最新的在最后)
// period: 周期 (通常为 14)
func CalculateSMA(data []float64, period int) float64 {
	if period <= 0 || len(data) < period {
		return 0
	}

	sum := 0.0
	for _, v := range data[len(data)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// TrueRange 计算单根K线的真实波幅
func TrueRange(bar broker.Bar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if d := abs(bar.High - prevClose); d > tr {
		tr = d
	}
	if d := abs(bar.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}

// CalculateATR 计算平均真实波幅 (Wilder's ATR)
// bars: K线序列 (按时间顺序，最新的在最后)，至少需要 period+1 根
func CalculateATR(bars []broker.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}

	// 1. 初始值用前 period 根真实波幅的简单平均
	var sum float64
	for i := 1; i <= period; i++ {
		sum += TrueRange(bars[i], bars[i-1].Close)
	}
	atr := sum / float64(period)

	// 2. 后续用 Wilder 平滑
	for i := period + 1; i < len(bars); i++ {
		tr := TrueRange(bars[i], bars[i-1].Close)
		atr = ((atr * float64(period-1)) + tr) / float64(period)
	}

	return atr
}

// Closes 提取收盘价序列
func Closes(bars []broker.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
