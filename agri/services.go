package agri

import "context"

// Locations serves the location hierarchy and location search.
type Locations interface {
	States(ctx context.Context) ([]string, error)
	Districts(ctx context.Context, state string) ([]string, error)
	Markets(ctx context.Context, district string) ([]string, error)
	Search(ctx context.Context, query string) ([]Place, error)
	AllMarkets(ctx context.Context) ([]string, error)
	Commodities(ctx context.Context) ([]string, error)
}

// Prices serves live market prices.
type Prices interface {
	LivePrices(ctx context.Context, m Market) ([]PriceRecord, error)
}

// Forecasts serves price and weather forecasts.
type Forecasts interface {
	PricePrediction(ctx context.Context, commodity, market string) ([]PricePoint, error)
	Weather(ctx context.Context, lat, lon float64) (WeatherForecast, error)
}

// Sensors serves the latest reading of a field device.
type Sensors interface {
	LatestReading(ctx context.Context, deviceID string) (SensorReading, error)
}

// Narrator turns a system prompt and a user query into free text.
// An empty answer is treated by callers as a failure.
type Narrator interface {
	Generate(ctx context.Context, systemPrompt, userQuery string) (string, error)
}

// Advisor produces crop advice from weather or soil conditions.
type Advisor interface {
	WeatherAdvice(ctx context.Context, crop string, forecast WeatherForecast, location string) (string, error)
	SoilAdvice(ctx context.Context, crop string, reading SensorReading) (string, error)
}
