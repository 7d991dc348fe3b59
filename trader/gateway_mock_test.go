package trader

import (
	"fmt"
	"sync"

	"fxhook/broker"
)

// fakeGateway 进程内网关替身，记录全部调用供断言
type fakeGateway struct {
	mu sync.Mutex

	quotes    map[string]broker.Quote
	infos     map[string]broker.SymbolInfo
	positions []broker.Position
	bars      map[string][]broker.Bar

	// submitFn 为空时一律成交
	submitFn  func(req broker.OrderRequest) (broker.OrderResult, error)
	submitted []broker.OrderRequest

	// modifyFn 为空时一律成功
	modifyFn func(ticket int64, sl, tp float64) (broker.OrderResult, error)
	modified []modifyCall

	positionsErr error
}

type modifyCall struct {
	ticket int64
	sl, tp float64
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		quotes: make(map[string]broker.Quote),
		infos:  make(map[string]broker.SymbolInfo),
		bars:   make(map[string][]broker.Bar),
	}
}

func (g *fakeGateway) Initialize(broker.Credentials) error { return nil }
func (g *fakeGateway) Shutdown()                           {}

func (g *fakeGateway) Quote(symbol string) (broker.Quote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	q, ok := g.quotes[symbol]
	if !ok {
		return broker.Quote{}, fmt.Errorf("no quote for %s", symbol)
	}
	return q, nil
}

func (g *fakeGateway) SymbolInfo(symbol string) (broker.SymbolInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	info, ok := g.infos[symbol]
	if !ok {
		return broker.SymbolInfo{}, fmt.Errorf("no symbol info for %s", symbol)
	}
	return info, nil
}

func (g *fakeGateway) SubmitOrder(req broker.OrderRequest) (broker.OrderResult, error) {
	g.mu.Lock()
	g.submitted = append(g.submitted, req)
	fn := g.submitFn
	g.mu.Unlock()

	if fn != nil {
		return fn(req)
	}
	return broker.OrderResult{Retcode: broker.RetDone, FilledPrice: req.Price, Ticket: 1}, nil
}

func (g *fakeGateway) ModifyPosition(ticket int64, sl, tp float64) (broker.OrderResult, error) {
	g.mu.Lock()
	g.modified = append(g.modified, modifyCall{ticket: ticket, sl: sl, tp: tp})
	fn := g.modifyFn
	g.mu.Unlock()

	if fn != nil {
		return fn(ticket, sl, tp)
	}
	return broker.OrderResult{Retcode: broker.RetDone}, nil
}

func (g *fakeGateway) OpenPositions() ([]broker.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.positionsErr != nil {
		return nil, g.positionsErr
	}
	out := make([]broker.Position, len(g.positions))
	copy(out, g.positions)
	return out, nil
}

func (g *fakeGateway) PriceHistory(symbol string, _ broker.Timeframe, count int) ([]broker.Bar, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	bars := g.bars[symbol]
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	out := make([]broker.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

func (g *fakeGateway) submitCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.submitted)
}

func (g *fakeGateway) lastSubmitted() broker.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitted[len(g.submitted)-1]
}
