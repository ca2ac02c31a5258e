package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"trendbot/internal/models"
	"trendbot/pkg/ratelimit"
)

// jsonit - быстрый JSON-декодер, совместимый со стандартной библиотекой
var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// ==================== Адреса API ====================

// Базовые URL по комбинации рынок/окружение
const (
	spotMainnetURL    = "https://api.binance.com"
	spotTestnetURL    = "https://testnet.binance.vision"
	futuresMainnetURL = "https://fapi.binance.com"
	futuresTestnetURL = "https://testnet.binancefuture.com"
)

// Веса запросов для weight-бюджета rate limiter'а
const (
	weightTime      = 1
	weightCandles   = 2
	weightAccount   = 10
	weightPositions = 5
	weightOrder     = 1
	weightLeverage  = 1
)

// recvWindow - допустимое расхождение timestamp подписанного запроса, мс
const recvWindow = "5000"

// BaseURL возвращает адрес API для комбинации рынок/окружение
func BaseURL(market models.MarketKind, env models.Environment) string {
	switch {
	case market == models.MarketFutures && env == models.EnvMainnet:
		return futuresMainnetURL
	case market == models.MarketFutures && env == models.EnvTestnet:
		return futuresTestnetURL
	case env == models.EnvTestnet:
		return spotTestnetURL
	default:
		return spotMainnetURL
	}
}

// ==================== Клиент ====================

// ClientConfig - параметры клиента биржи одного бота
type ClientConfig struct {
	Market models.MarketKind
	Env    models.Environment

	Symbol     string
	BaseAsset  string
	QuoteAsset string

	APIKey    string
	APISecret string

	// BaseURL переопределяет адрес API (используется в тестах)
	BaseURL string

	// Limiter - общий weight-бюджет запросов процесса (nil = без лимита)
	Limiter *ratelimit.Limiter

	// HTTP - общий пул соединений процесса (nil = SharedHTTPClient)
	HTTP *HTTPClient
}

// Client - REST-клиент биржи
//
// Каждый цикл бота держит собственный экземпляр: клиент привязан
// к паре рынок/окружение и конкретному символу. Connection pool и
// rate limiter при этом общие на процесс.
type Client struct {
	cfg     ClientConfig
	baseURL string
	http    *HTTPClient
	limiter *ratelimit.Limiter

	// timeOffset - смещение серверного времени относительно локального, мс.
	// Подставляется в timestamp подписанных запросов.
	timeMu     sync.Mutex
	timeSynced bool
	timeOffset int64
}

// NewClient создает клиента биржи
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURL(cfg.Market, cfg.Env)
	}

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = SharedHTTPClient()
	}

	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		http:    httpClient,
		limiter: cfg.Limiter,
	}
}

// Symbol возвращает торговый символ клиента
func (c *Client) Symbol() string {
	return c.cfg.Symbol
}

// ==================== Публичные запросы ====================

// GetServerTime возвращает серверное время биржи в миллисекундах
func (c *Client) GetServerTime(ctx context.Context) (int64, error) {
	body, err := c.publicRequest(ctx, c.path("/api/v3/time", "/fapi/v1/time"), nil, weightTime)
	if err != nil {
		return 0, err
	}

	var resp struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := jsonit.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse server time: %w", err)
	}

	return resp.ServerTime, nil
}

// GetCandles возвращает последние limit свечей заданного интервала
//
// Последняя свеча в ответе - текущая, ещё не закрытая.
func (c *Client) GetCandles(ctx context.Context, interval string, limit int) ([]Candle, error) {
	params := url.Values{}
	params.Set("symbol", c.cfg.Symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.publicRequest(ctx, c.path("/api/v3/klines", "/fapi/v1/klines"), params, weightCandles)
	if err != nil {
		return nil, err
	}

	// Свеча приходит массивом смешанных типов:
	// [openTime, "open", "high", "low", "close", "volume", ...]
	var raw [][]interface{}
	if err := jsonit.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse klines: %w", err)
	}

	candles := make([]Candle, 0, len(raw))
	for i, row := range raw {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline %d: unexpected field count %d", i, len(row))
		}

		openTime, ok := row[0].(float64)
		if !ok {
			return nil, fmt.Errorf("kline %d: unexpected openTime type %T", i, row[0])
		}

		candle := Candle{OpenTime: time.UnixMilli(int64(openTime))}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		for j, dst := range fields {
			s, ok := row[j+1].(string)
			if !ok {
				return nil, fmt.Errorf("kline %d: unexpected field type %T", i, row[j+1])
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("kline %d: parse field %q: %w", i, s, err)
			}
			*dst = v
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

// ==================== Подписанные запросы ====================

// GetAccount возвращает балансы аккаунта в разрезе пары бота
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	if c.cfg.Market == models.MarketFutures {
		return c.getFuturesAccount(ctx)
	}
	return c.getSpotAccount(ctx)
}

func (c *Client) getSpotAccount(ctx context.Context) (*Account, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/account", nil, weightAccount)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := jsonit.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse spot account: %w", err)
	}

	account := &Account{}
	for _, b := range resp.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			return nil, fmt.Errorf("parse balance %s: %w", b.Asset, err)
		}
		switch b.Asset {
		case c.cfg.QuoteAsset:
			account.QuoteBalance = free
		case c.cfg.BaseAsset:
			account.BaseBalance = free
		}
	}

	return account, nil
}

func (c *Client) getFuturesAccount(ctx context.Context) (*Account, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v2/account", nil, weightAccount)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Assets []struct {
			Asset            string `json:"asset"`
			AvailableBalance string `json:"availableBalance"`
		} `json:"assets"`
	}
	if err := jsonit.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse futures account: %w", err)
	}

	account := &Account{}
	for _, a := range resp.Assets {
		if a.Asset != c.cfg.QuoteAsset {
			continue
		}
		available, err := strconv.ParseFloat(a.AvailableBalance, 64)
		if err != nil {
			return nil, fmt.Errorf("parse balance %s: %w", a.Asset, err)
		}
		account.QuoteBalance = available
	}

	return account, nil
}

// GetPositions возвращает открытые позиции по символу клиента
//
// На споте отдельного эндпоинта позиций нет: позиция синтезируется
// из свободного баланса базового актива, цена входа при этом неизвестна
// и остаётся нулевой.
func (c *Client) GetPositions(ctx context.Context) ([]Position, error) {
	if c.cfg.Market == models.MarketFutures {
		return c.getFuturesPositions(ctx)
	}

	account, err := c.getSpotAccount(ctx)
	if err != nil {
		return nil, err
	}

	if account.BaseBalance <= 0 {
		return nil, nil
	}

	return []Position{{
		Symbol:   c.cfg.Symbol,
		Side:     "long",
		Quantity: account.BaseBalance,
	}}, nil
}

func (c *Client) getFuturesPositions(ctx context.Context) ([]Position, error) {
	params := url.Values{}
	params.Set("symbol", c.cfg.Symbol)

	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v2/positionRisk", params, weightPositions)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Symbol      string `json:"symbol"`
		PositionAmt string `json:"positionAmt"`
		EntryPrice  string `json:"entryPrice"`
		MarkPrice   string `json:"markPrice"`
	}
	if err := jsonit.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse positions: %w", err)
	}

	var positions []Position
	for _, p := range raw {
		amt, err := strconv.ParseFloat(p.PositionAmt, 64)
		if err != nil {
			return nil, fmt.Errorf("parse position amount: %w", err)
		}
		if amt == 0 {
			continue
		}

		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		mark, _ := strconv.ParseFloat(p.MarkPrice, 64)

		side := "long"
		qty := amt
		if amt < 0 {
			side = "short"
			qty = -amt
		}

		positions = append(positions, Position{
			Symbol:     p.Symbol,
			Side:       side,
			Quantity:   qty,
			EntryPrice: entry,
			MarkPrice:  mark,
		})
	}

	return positions, nil
}

// SetLeverage выставляет плечо по символу (только фьючерсы)
func (c *Client) SetLeverage(ctx context.Context, leverage int) error {
	if c.cfg.Market != models.MarketFutures {
		return nil
	}

	params := url.Values{}
	params.Set("symbol", c.cfg.Symbol)
	params.Set("leverage", strconv.Itoa(leverage))

	_, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/leverage", params, weightLeverage)
	return err
}

// PlaceOrder размещает рыночный ордер
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", c.cfg.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(req.Quantity, 'f', -1, 64))

	if c.cfg.Market == models.MarketFutures {
		if req.ReduceOnly {
			params.Set("reduceOnly", "true")
		}
	} else {
		// Спот по умолчанию отвечает ACK без деталей исполнения
		params.Set("newOrderRespType", "RESULT")
	}

	body, err := c.signedRequest(ctx, http.MethodPost, c.path("/api/v3/order", "/fapi/v1/order"), params, weightOrder)
	if err != nil {
		return nil, err
	}

	var resp struct {
		OrderID     int64  `json:"orderId"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
		AvgPrice    string `json:"avgPrice"`            // фьючерсы
		CumQuoteQty string `json:"cummulativeQuoteQty"` // спот
	}
	if err := jsonit.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}

	result := &OrderResult{
		OrderID: resp.OrderID,
		Status:  resp.Status,
	}

	if resp.ExecutedQty != "" {
		result.ExecutedQty, _ = strconv.ParseFloat(resp.ExecutedQty, 64)
	}
	if resp.AvgPrice != "" {
		result.AvgPrice, _ = strconv.ParseFloat(resp.AvgPrice, 64)
	} else if resp.CumQuoteQty != "" && result.ExecutedQty > 0 {
		quote, _ := strconv.ParseFloat(resp.CumQuoteQty, 64)
		result.AvgPrice = quote / result.ExecutedQty
	}

	return result, nil
}

// ==================== Транспорт и подпись ====================

// path выбирает путь эндпоинта в зависимости от рынка
func (c *Client) path(spot, futures string) string {
	if c.cfg.Market == models.MarketFutures {
		return futures
	}
	return spot
}

// publicRequest выполняет неподписанный GET-запрос
func (c *Client) publicRequest(ctx context.Context, path string, params url.Values, weight int) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}

	return c.do(req, weight)
}

// signedRequest выполняет запрос с HMAC-SHA256 подписью
//
// Параметры кодируются в канонический query string (url.Values.Encode
// сортирует ключи), подпись считается от него и добавляется последним
// параметром. Тело запроса не используется, параметры POST уходят
// в query string.
func (c *Client) signedRequest(ctx context.Context, method, path string, params url.Values, weight int) ([]byte, error) {
	c.ensureTimeSync(ctx)

	if params == nil {
		params = url.Values{}
	}
	params.Set("recvWindow", recvWindow)
	params.Set("timestamp", strconv.FormatInt(c.timestamp(), 10))

	query := params.Encode()
	query += "&signature=" + c.sign(query)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	return c.do(req, weight)
}

// sign считает HMAC-SHA256 подпись от канонического query string
func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// timestamp возвращает текущее время в мс с поправкой на серверное смещение
func (c *Client) timestamp() int64 {
	c.timeMu.Lock()
	offset := c.timeOffset
	c.timeMu.Unlock()
	return time.Now().UnixMilli() + offset
}

// ensureTimeSync однократно синхронизирует смещение серверного времени
//
// При ошибке остаётся локальное время: recvWindow покрывает небольшое
// расхождение, а следующий вызов попробует синхронизацию снова.
func (c *Client) ensureTimeSync(ctx context.Context) {
	c.timeMu.Lock()
	synced := c.timeSynced
	c.timeMu.Unlock()
	if synced {
		return
	}

	serverTime, err := c.GetServerTime(ctx)
	if err != nil {
		return
	}

	c.timeMu.Lock()
	c.timeOffset = serverTime - time.Now().UnixMilli()
	c.timeSynced = true
	c.timeMu.Unlock()
}

// do выполняет запрос с учетом weight-бюджета и разбирает ошибки API
func (c *Client) do(req *http.Request, weight int) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitN(req.Context(), weight); err != nil {
			return nil, err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if jsonit.Unmarshal(body, &payload) == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Msg
		}
		if apiErr.Message == "" {
			apiErr.Message = string(body)
		}
		return nil, apiErr
	}

	return body, nil
}
