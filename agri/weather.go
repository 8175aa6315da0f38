package agri

import (
	"fmt"
	"time"
)

// Weather describes a WMO weather code.
type Weather struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var weatherCodes = map[int]Weather{
	0:  {Description: "Clear sky", Icon: "☀️"},
	1:  {Description: "Mainly clear", Icon: "🌤️"},
	2:  {Description: "Partly cloudy", Icon: "⛅"},
	3:  {Description: "Overcast", Icon: "☁️"},
	45: {Description: "Fog", Icon: "🌫️"},
	48: {Description: "Depositing rime fog", Icon: "🌫️"},
	51: {Description: "Light drizzle", Icon: "🌦️"},
	53: {Description: "Moderate drizzle", Icon: "🌦️"},
	55: {Description: "Dense drizzle", Icon: "🌦️"},
	61: {Description: "Slight rain", Icon: "🌧️"},
	63: {Description: "Moderate rain", Icon: "🌧️"},
	65: {Description: "Heavy rain", Icon: "🌧️"},
	80: {Description: "Slight rain showers", Icon: "🌦️"},
	81: {Description: "Moderate rain showers", Icon: "🌧️"},
	82: {Description: "Violent rain showers", Icon: "⛈️"},
}

// DescribeWeather maps a WMO code to its description. Unknown codes map to
// "Unknown".
func DescribeWeather(code int) Weather {
	w, ok := weatherCodes[code]
	if !ok {
		w = Weather{Description: "Unknown", Icon: "❓"}
	}
	w.Code = code
	return w
}

// DayForecast is one day of a weather forecast.
type DayForecast struct {
	Date    time.Time `json:"-"`
	Label   string    `json:"date"`
	Weather Weather   `json:"weather"`
	TempMax int       `json:"tempMax"`
	TempMin int       `json:"tempMin"`
}

// WeatherForecast is a multi-day forecast for one location.
type WeatherForecast struct {
	Days []DayForecast `json:"days"`
}

// Empty reports whether the forecast has no days.
func (f WeatherForecast) Empty() bool { return len(f.Days) == 0 }

// DailySeries is the column-oriented daily block served by the weather
// endpoint.
type DailySeries struct {
	Time        []string  `json:"time"`
	WeatherCode []float64 `json:"weathercode"`
	TempMax     []float64 `json:"temperature_2m_max"`
	TempMin     []float64 `json:"temperature_2m_min"`
}

// Forecast converts the columns into days. Columns shorter than Time are an
// error.
func (d DailySeries) Forecast() (WeatherForecast, error) {
	n := len(d.Time)
	if len(d.WeatherCode) < n || len(d.TempMax) < n || len(d.TempMin) < n {
		return WeatherForecast{}, fmt.Errorf("daily series: ragged columns (time=%d code=%d max=%d min=%d)",
			n, len(d.WeatherCode), len(d.TempMax), len(d.TempMin))
	}
	days := make([]DayForecast, 0, n)
	for i, raw := range d.Time {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return WeatherForecast{}, fmt.Errorf("daily series: bad date %q: %w", raw, err)
		}
		days = append(days, DayForecast{
			Date:    date,
			Label:   date.Format("Mon, Jan 2"),
			Weather: DescribeWeather(int(d.WeatherCode[i])),
			TempMax: round(d.TempMax[i]),
			TempMin: round(d.TempMin[i]),
		})
	}
	return WeatherForecast{Days: days}, nil
}

func round(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
