package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"fxhook/broker"
	"fxhook/pkg/logger"
)

const defaultTimeout = 10 * time.Second

// Client MT5桥接终端的REST客户端，实现 broker.Gateway
// 桥接终端跑在MT5终端同机上，把终端API以HTTP+JSON形式暴露出来
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logger.NewModuleLogger("bridge"),
	}
}

// Initialize 建立会话并登录交易账户，失败返回 ErrSessionFailure
func (c *Client) Initialize(creds broker.Credentials) error {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	body := map[string]interface{}{
		"login":    creds.Login,
		"password": creds.Password,
		"server":   creds.Server,
	}
	if err := c.post("/session/init", body, &resp); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrSessionFailure, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", broker.ErrSessionFailure, resp.Message)
	}

	c.log.Info("✅ 已连接交易账户",
		zap.Int64("login", creds.Login),
		zap.String("server", creds.Server))
	return nil
}

// Shutdown 关闭会话，尽力而为
func (c *Client) Shutdown() {
	if err := c.post("/session/shutdown", nil, nil); err != nil {
		c.log.Warn("关闭网关会话失败", zap.Error(err))
		return
	}
	c.log.Info("已断开交易账户连接")
}

func (c *Client) Quote(symbol string) (broker.Quote, error) {
	var quote broker.Quote
	err := c.get("/quote", url.Values{"symbol": {symbol}}, &quote)
	return quote, err
}

func (c *Client) SymbolInfo(symbol string) (broker.SymbolInfo, error) {
	var info broker.SymbolInfo
	err := c.get("/symbol_info", url.Values{"symbol": {symbol}}, &info)
	return info, err
}

// SubmitOrder 提交市价单，拒单包装为 *broker.RejectError
func (c *Client) SubmitOrder(req broker.OrderRequest) (broker.OrderResult, error) {
	var res broker.OrderResult
	if err := c.post("/order", req, &res); err != nil {
		return broker.OrderResult{}, err
	}
	if !res.Done() {
		return res, &broker.RejectError{Retcode: res.Retcode, Comment: res.Comment}
	}
	return res, nil
}

func (c *Client) ModifyPosition(ticket int64, stopLoss, takeProfit float64) (broker.OrderResult, error) {
	var res broker.OrderResult
	body := map[string]interface{}{
		"ticket": ticket,
		"sl":     stopLoss,
		"tp":     takeProfit,
	}
	if err := c.post("/position/modify", body, &res); err != nil {
		return broker.OrderResult{}, err
	}
	if !res.Done() {
		return res, &broker.RejectError{Retcode: res.Retcode, Comment: res.Comment}
	}
	return res, nil
}

func (c *Client) OpenPositions() ([]broker.Position, error) {
	var positions []broker.Position
	if err := c.get("/positions", nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *Client) PriceHistory(symbol string, tf broker.Timeframe, count int) ([]broker.Bar, error) {
	var bars []broker.Bar
	query := url.Values{
		"symbol":    {symbol},
		"timeframe": {string(tf)},
		"count":     {strconv.Itoa(count)},
	}
	if err := c.get("/rates", query, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func (c *Client) get(path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := c.http.Get(endpoint)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(path, resp, out)
}

func (c *Client) post(path string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("POST %s: %w", path, err)
		}
		payload = bytes.NewReader(data)
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", payload)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(path, resp, out)
}

func decodeResponse(path string, resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: 网关返回 %d: %s", path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: 解析网关响应失败: %w", path, err)
	}
	return nil
}
