package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/infra/metrics"
	"github.com/rs/zerolog"
)

const (
	MsgNoProducts          = "Erro ao acessar catálogo ou nenhum produto encontrado."
	MsgCatalogUnavailable  = "Não foi possível consultar o catálogo agora."
	StockAvailable         = "Disponível"
	StockUnavailable       = "Indisponível"
	DefaultPageSize        = 8
	defaultRequestTimeout  = 10 * time.Second
	wooCommerceInStock     = "instock"
	maxResponseBodyInBytes = 4 << 20
)

// ErrorResult 型錄無法使用時回給助理的內容
type ErrorResult struct {
	Error string `json:"error"`
}

// ISearcher 查詢結果一律以值回傳：[]model.CatalogRecord 或 ErrorResult
type ISearcher interface {
	Search(ctx context.Context, query string) any
}

type wooImage struct {
	Src string `json:"src"`
}

type wooProduct struct {
	Name        string     `json:"name"`
	Price       flexString `json:"price"`
	Permalink   string     `json:"permalink"`
	Images      []wooImage `json:"images"`
	StockStatus string     `json:"stock_status"`
}

// WooCommerce 的 price 通常是字串，偶爾是數字
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	pageSize       int
	httpClient     *http.Client
	logger         *zerolog.Logger
	metrics        *metrics.Metrics
}

var _ ISearcher = (*Client)(nil)

type Option func(*Client)

func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func NewClient(baseURL, consumerKey, consumerSecret string, logger *zerolog.Logger, options ...Option) *Client {
	if logger == nil {
		panic("logger is nil")
	}
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		pageSize:       DefaultPageSize,
		httpClient:     &http.Client{Timeout: defaultRequestTimeout},
		logger:         logger,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Search 不回傳 error，失敗時回傳 ErrorResult 讓助理自行回覆使用者
func (c *Client) Search(ctx context.Context, query string) any {
	records, isList, err := c.search(ctx, query)
	if err != nil {
		c.logger.Error().Err(err).Str("query", query).Msg("catalog search failed")
		c.metrics.CatalogSearch("error")
		return ErrorResult{Error: MsgCatalogUnavailable}
	}
	if !isList {
		c.logger.Warn().Str("query", query).Msg("catalog returned non-list response")
		c.metrics.CatalogSearch("not_list")
		return ErrorResult{Error: MsgNoProducts}
	}
	c.metrics.CatalogSearch("ok")
	return records
}

func (c *Client) searchURL(query string) string {
	params := url.Values{}
	params.Set("search", query)
	params.Set("consumer_key", c.consumerKey)
	params.Set("consumer_secret", c.consumerSecret)
	params.Set("per_page", strconv.Itoa(c.pageSize))
	return c.baseURL + "/products?" + params.Encode()
}

func (c *Client) search(ctx context.Context, query string) ([]model.CatalogRecord, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query), nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("sending catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyInBytes))
	if err != nil {
		return nil, false, fmt.Errorf("reading catalog response: %w", err)
	}

	// 與狀態碼無關，只要 body 是合法 JSON 但不是陣列就視為沒有商品
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false, fmt.Errorf("decoding catalog response (status %d): %w", resp.StatusCode, err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false, nil
	}

	var products []wooProduct
	if err := json.Unmarshal(trimmed, &products); err != nil {
		return nil, false, fmt.Errorf("decoding catalog products: %w", err)
	}

	records := make([]model.CatalogRecord, 0, len(products))
	for _, p := range products {
		records = append(records, toRecord(p))
	}
	return records, true, nil
}

func toRecord(p wooProduct) model.CatalogRecord {
	record := model.CatalogRecord{
		Name:         p.Name,
		PriceDisplay: string(p.Price),
		Link:         p.Permalink,
		StockStatus:  StockUnavailable,
	}
	if len(p.Images) > 0 {
		src := p.Images[0].Src
		record.ImageURL = &src
	}
	if p.StockStatus == wooCommerceInStock {
		record.StockStatus = StockAvailable
	}
	return record
}
