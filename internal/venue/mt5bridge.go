package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kirillm/candle-bot/internal/domain"
	"github.com/kirillm/candle-bot/pkg/utils"
)

// Параметры отправки ордеров, как их ждет терминал
const (
	orderDeviationPoints = 10
	fillingFOK           = "FOK"
	fillingReturn        = "RETURN"
)

// BridgeClient — клиент REST-моста перед терминалом MT5. Мост держит одну
// сессию терминала; клиент не хранит торговое состояние, только реквизиты
// для логина.
type BridgeClient struct {
	baseURL  string
	account  int64
	password string
	server   string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *utils.Logger
}

type barsResponse struct {
	RetCode int    `json:"retcode"`
	Message string `json:"message"`
	Bars    []struct {
		Time  int64   `json:"time"`
		Open  float64 `json:"open"`
		Close float64 `json:"close"`
	} `json:"bars"`
}

type tickResponse struct {
	RetCode int     `json:"retcode"`
	Message string  `json:"message"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
}

type symbolInfoResponse struct {
	RetCode int     `json:"retcode"`
	Message string  `json:"message"`
	Digits  int     `json:"digits"`
	Point   float64 `json:"point"`
	Visible bool    `json:"visible"`
}

type positionsResponse struct {
	RetCode   int    `json:"retcode"`
	Message   string `json:"message"`
	Positions []struct {
		Ticket     int64   `json:"ticket"`
		Magic      int64   `json:"magic"`
		Symbol     string  `json:"symbol"`
		Side       string  `json:"side"`
		Volume     float64 `json:"volume"`
		Price      float64 `json:"price"`
		TakeProfit float64 `json:"tp"`
		StopLoss   float64 `json:"sl"`
	} `json:"positions"`
}

type ordersResponse struct {
	RetCode int    `json:"retcode"`
	Message string `json:"message"`
	Orders  []struct {
		Ticket     int64   `json:"ticket"`
		Magic      int64   `json:"magic"`
		Symbol     string  `json:"symbol"`
		Kind       string  `json:"kind"`
		Volume     float64 `json:"volume"`
		Price      float64 `json:"price"`
		TakeProfit float64 `json:"tp"`
		StopLoss   float64 `json:"sl"`
	} `json:"orders"`
}

type statusResponse struct {
	RetCode   int    `json:"retcode"`
	Message   string `json:"message"`
	Connected bool   `json:"connected"`
}

type orderResponse struct {
	RetCode  int     `json:"retcode"`
	Comment  string  `json:"comment"`
	Price    float64 `json:"price"`
	Position int64   `json:"position"`
}

func NewBridgeClient(baseURL string, account int64, password, server string, logger *utils.Logger) *BridgeClient {
	return &BridgeClient{
		baseURL:  baseURL,
		account:  account,
		password: password,
		server:   server,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(10), 20),
		logger:   logger,
	}
}

// Connect инициализирует сессию терминала и логинится под торговым счетом
func (b *BridgeClient) Connect(ctx context.Context) error {
	body := map[string]interface{}{
		"account":  b.account,
		"password": b.password,
		"server":   b.server,
	}
	var resp statusResponse
	if err := b.doPost(ctx, "/connect", body, &resp); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotConnected, err)
	}
	if resp.RetCode != 0 {
		return fmt.Errorf("%w: login failed: %s", domain.ErrNotConnected, resp.Message)
	}
	b.logger.Info("Connected to MT5 bridge: account=%d server=%s", b.account, b.server)
	return nil
}

// Shutdown закрывает сессию терминала
func (b *BridgeClient) Shutdown(ctx context.Context) error {
	var resp statusResponse
	if err := b.doPost(ctx, "/shutdown", nil, &resp); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// GetBars возвращает последние бары, новейший первым. Время закрытия бара
// вычисляется из времени открытия и таймфрейма: оно считается достовернее
// того, что сообщает терминал.
func (b *BridgeClient) GetBars(ctx context.Context, symbol string, timeframe domain.Timeframe, count int) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("timeframe", string(timeframe))
	params.Set("count", fmt.Sprintf("%d", count))

	var resp barsResponse
	if err := b.doGet(ctx, "/bars", params, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("%w: bars %s: %s", domain.ErrVenueRejected, symbol, resp.Message)
	}

	duration := timeframe.Duration()
	bars := make([]domain.Bar, 0, len(resp.Bars))
	for _, raw := range resp.Bars {
		openTime := time.Unix(raw.Time, 0).UTC()
		bars = append(bars, domain.Bar{
			Open:      raw.Open,
			Close:     raw.Close,
			OpenTime:  openTime,
			CloseTime: openTime.Add(duration),
		})
	}
	return bars, nil
}

func (b *BridgeClient) GetTick(ctx context.Context, symbol string) (domain.Tick, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp tickResponse
	if err := b.doGet(ctx, "/tick", params, &resp); err != nil {
		return domain.Tick{}, err
	}
	if resp.RetCode != 0 {
		return domain.Tick{}, fmt.Errorf("%w: tick %s: %s", domain.ErrVenueRejected, symbol, resp.Message)
	}
	return domain.Tick{Bid: resp.Bid, Ask: resp.Ask}, nil
}

func (b *BridgeClient) GetSymbolInfo(ctx context.Context, symbol string) (domain.SymbolInfo, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp symbolInfoResponse
	if err := b.doGet(ctx, "/symbol", params, &resp); err != nil {
		return domain.SymbolInfo{}, err
	}
	if resp.RetCode != 0 {
		return domain.SymbolInfo{}, fmt.Errorf("%w: symbol %s: %s", domain.ErrVenueRejected, symbol, resp.Message)
	}
	return domain.SymbolInfo{Digits: resp.Digits, Point: resp.Point, Visible: resp.Visible}, nil
}

// SubmitMarketOrder отправляет рыночный ордер. Отказ площадки не считается
// ошибкой транспорта: retcode и причина возвращаются вызывающему как есть.
func (b *BridgeClient) SubmitMarketOrder(ctx context.Context, spec MarketOrderSpec) (domain.OrderResult, error) {
	body := map[string]interface{}{
		"symbol":    spec.Symbol,
		"side":      spec.Side,
		"volume":    spec.Volume,
		"magic":     spec.Magic,
		"comment":   spec.Comment,
		"deviation": orderDeviationPoints,
		"filling":   fillingFOK,
	}
	var resp orderResponse
	if err := b.doPost(ctx, "/order/market", body, &resp); err != nil {
		return domain.OrderResult{}, err
	}
	return domain.OrderResult{
		Retcode:    resp.RetCode,
		Reason:     resp.Comment,
		Price:      resp.Price,
		PositionID: resp.Position,
	}, nil
}

// ModifyPosition навешивает TP/SL на открытую позицию
func (b *BridgeClient) ModifyPosition(ctx context.Context, positionID int64, symbol string, takeProfit, stopLoss float64) error {
	body := map[string]interface{}{
		"position": positionID,
		"symbol":   symbol,
		"tp":       takeProfit,
		"sl":       stopLoss,
	}
	var resp orderResponse
	if err := b.doPost(ctx, "/order/modify", body, &resp); err != nil {
		return err
	}
	if resp.RetCode != domain.RetcodeDone {
		return fmt.Errorf("%w: modify position %d: retcode=%d %s",
			domain.ErrVenueRejected, positionID, resp.RetCode, resp.Comment)
	}
	return nil
}

func (b *BridgeClient) SubmitPendingOrder(ctx context.Context, spec PendingOrderSpec) (domain.OrderResult, error) {
	body := map[string]interface{}{
		"symbol":    spec.Symbol,
		"kind":      string(spec.Kind),
		"volume":    spec.Volume,
		"price":     spec.Price,
		"tp":        spec.TakeProfit,
		"sl":        spec.StopLoss,
		"magic":     spec.Magic,
		"comment":   spec.Comment,
		"deviation": orderDeviationPoints,
		"filling":   fillingReturn,
	}
	var resp orderResponse
	if err := b.doPost(ctx, "/order/pending", body, &resp); err != nil {
		return domain.OrderResult{}, err
	}
	return domain.OrderResult{Retcode: resp.RetCode, Reason: resp.Comment}, nil
}

func (b *BridgeClient) CancelOrder(ctx context.Context, ticket int64) error {
	body := map[string]interface{}{"ticket": ticket}
	var resp orderResponse
	if err := b.doPost(ctx, "/order/cancel", body, &resp); err != nil {
		return err
	}
	if resp.RetCode != domain.RetcodeDone {
		return fmt.Errorf("%w: cancel %d: retcode=%d %s",
			domain.ErrVenueRejected, ticket, resp.RetCode, resp.Comment)
	}
	return nil
}

func (b *BridgeClient) ListPositions(ctx context.Context) ([]domain.Position, error) {
	var resp positionsResponse
	if err := b.doGet(ctx, "/positions", nil, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("%w: positions: %s", domain.ErrVenueRejected, resp.Message)
	}
	positions := make([]domain.Position, 0, len(resp.Positions))
	for _, raw := range resp.Positions {
		positions = append(positions, domain.Position{
			Ticket:     raw.Ticket,
			Magic:      raw.Magic,
			Symbol:     raw.Symbol,
			Side:       raw.Side,
			Volume:     raw.Volume,
			Price:      raw.Price,
			TakeProfit: raw.TakeProfit,
			StopLoss:   raw.StopLoss,
		})
	}
	return positions, nil
}

func (b *BridgeClient) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var resp ordersResponse
	if err := b.doGet(ctx, "/orders", nil, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("%w: orders: %s", domain.ErrVenueRejected, resp.Message)
	}
	orders := make([]domain.Order, 0, len(resp.Orders))
	for _, raw := range resp.Orders {
		orders = append(orders, domain.Order{
			Ticket:     raw.Ticket,
			Magic:      raw.Magic,
			Symbol:     raw.Symbol,
			Kind:       domain.OrderKind(raw.Kind),
			Volume:     raw.Volume,
			Price:      raw.Price,
			TakeProfit: raw.TakeProfit,
			StopLoss:   raw.StopLoss,
		})
	}
	return orders, nil
}

// IsConnected опрашивает состояние сессии терминала
func (b *BridgeClient) IsConnected(ctx context.Context) bool {
	var resp statusResponse
	if err := b.doGet(ctx, "/status", nil, &resp); err != nil {
		return false
	}
	return resp.RetCode == 0 && resp.Connected
}

// Reconnect синхронно восстанавливает сессию
func (b *BridgeClient) Reconnect(ctx context.Context) error {
	return b.Connect(ctx)
}

func (b *BridgeClient) doGet(ctx context.Context, path string, params url.Values, out interface{}) error {
	target := b.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return b.do(req, out)
}

func (b *BridgeClient) doPost(ctx context.Context, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req, out)
}

func (b *BridgeClient) do(req *http.Request, out interface{}) error {
	if err := b.limiter.Wait(req.Context()); err != nil {
		return err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned HTTP %d: %s", resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
