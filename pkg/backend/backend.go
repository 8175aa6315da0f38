// Package backend is the HTTP client for the dashboard backend. One Client
// serves every agri collaborator interface: the location hierarchy, live
// prices, price and weather forecasts, the IoT reading store, and the AI
// advisor endpoints.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/agriinsight/harvest/agri"
)

// Client talks to the dashboard backend.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithTimeout sets the per-request timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetries retries failed requests up to n times, waiting wait between
// attempts. Only connection errors and 5xx responses are retried.
func WithRetries(n int, wait time.Duration) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(n).
			SetRetryWaitTime(wait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *resty.Client) {
		if token != "" {
			c.SetAuthToken(token)
		}
	}
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

var (
	_ agri.Locations = (*Client)(nil)
	_ agri.Prices    = (*Client)(nil)
	_ agri.Forecasts = (*Client)(nil)
	_ agri.Sensors   = (*Client)(nil)
	_ agri.Narrator  = (*Client)(nil)
	_ agri.Advisor   = (*Client)(nil)
)

// States lists the states with live market data.
func (c *Client) States(ctx context.Context) ([]string, error) {
	var out []string
	err := c.get(ctx, "/api/live-locations/states", nil, &out)
	return out, err
}

// Districts lists the districts of state.
func (c *Client) Districts(ctx context.Context, state string) ([]string, error) {
	var out []string
	err := c.get(ctx, "/api/live-locations/districts", map[string]string{"state": state}, &out)
	return out, err
}

// Markets lists the markets of district.
func (c *Client) Markets(ctx context.Context, district string) ([]string, error) {
	var out []string
	err := c.get(ctx, "/api/live-locations/markets", map[string]string{"district": district}, &out)
	return out, err
}

// Search finds places whose name matches query.
func (c *Client) Search(ctx context.Context, query string) ([]agri.Place, error) {
	var out []agri.Place
	err := c.get(ctx, "/api/locations/search", map[string]string{"q": query}, &out)
	return out, err
}

// AllMarkets lists every market with forecast data.
func (c *Client) AllMarkets(ctx context.Context) ([]string, error) {
	var out []string
	err := c.get(ctx, "/api/locations/all-markets", nil, &out)
	return out, err
}

// Commodities lists every commodity with forecast data.
func (c *Client) Commodities(ctx context.Context) ([]string, error) {
	var out []string
	err := c.get(ctx, "/api/locations/commodities", nil, &out)
	return out, err
}

// LivePrices returns today's price report for m.
func (c *Client) LivePrices(ctx context.Context, m agri.Market) ([]agri.PriceRecord, error) {
	var out []agri.PriceRecord
	err := c.get(ctx, "/api/prices/live", map[string]string{
		"state":    m.State,
		"district": m.District,
		"market":   m.Market,
	}, &out)
	return out, err
}

// PricePrediction returns the price forecast of commodity at market.
func (c *Client) PricePrediction(ctx context.Context, commodity, market string) ([]agri.PricePoint, error) {
	var out []agri.PricePoint
	err := c.get(ctx, "/api/predict/price", map[string]string{
		"commodity": commodity,
		"market":    market,
	}, &out)
	return out, err
}

// Weather returns the daily forecast at the given coordinates.
func (c *Client) Weather(ctx context.Context, lat, lon float64) (agri.WeatherForecast, error) {
	var out struct {
		Daily agri.DailySeries `json:"daily"`
	}
	err := c.get(ctx, "/api/weather/", map[string]string{
		"lat": strconv.FormatFloat(lat, 'f', -1, 64),
		"lon": strconv.FormatFloat(lon, 'f', -1, 64),
	}, &out)
	if err != nil {
		return agri.WeatherForecast{}, err
	}
	return out.Daily.Forecast()
}

// LatestReading returns the last reading pushed by deviceID.
func (c *Client) LatestReading(ctx context.Context, deviceID string) (agri.SensorReading, error) {
	var out agri.SensorReading
	err := c.get(ctx, "/api/iot/latest-data/"+url.PathEscape(deviceID), nil, &out)
	return out, err
}

// PushReading stores a reading as if sent by the field device.
func (c *Client) PushReading(ctx context.Context, r agri.SensorReading) error {
	return c.post(ctx, "/api/iot/sensor-data", r, nil)
}

type adviceResponse struct {
	Advice string `json:"advice"`
}

// Generate asks the backend's narrative endpoint to answer userQuery under
// systemPrompt.
func (c *Client) Generate(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	var out adviceResponse
	err := c.post(ctx, "/api/advisor/generate", map[string]string{
		"system_prompt": systemPrompt,
		"user_query":    userQuery,
	}, &out)
	return out.Advice, err
}

// WeatherAdvice asks for crop advice from a weather forecast.
func (c *Client) WeatherAdvice(ctx context.Context, crop string, f agri.WeatherForecast, location string) (string, error) {
	var out adviceResponse
	err := c.post(ctx, "/api/advisor/weather-suggestion", struct {
		CropName     string             `json:"crop_name"`
		WeatherData  []agri.DayForecast `json:"weather_data"`
		LocationName string             `json:"location_name"`
	}{crop, f.Days, location}, &out)
	return out.Advice, err
}

// SoilAdvice asks for irrigation advice from a live sensor reading.
func (c *Client) SoilAdvice(ctx context.Context, crop string, r agri.SensorReading) (string, error) {
	var out adviceResponse
	err := c.post(ctx, "/api/advisor/soil-suggestion", struct {
		CropName     string   `json:"crop_name"`
		SoilMoisture float64  `json:"soil_moisture"`
		Temperature  *float64 `json:"temperature,omitempty"`
		Humidity     *float64 `json:"humidity,omitempty"`
	}{crop, r.SoilMoisture, r.Temperature, r.Humidity}, &out)
	return out.Advice, err
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	return decode(http.MethodGet, path, resp, err, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	return decode(http.MethodPost, path, resp, err, out)
}

func decode(method, path string, resp *resty.Response, err error, out any) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return newAPIError(method, path, resp.StatusCode(), resp.Body())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
