package agri

import (
	"fmt"
	"strings"
)

// AnalystPrompt is the system prompt for price forecast analysis.
const AnalystPrompt = "You are an expert agricultural market analyst providing advice to farmers in India. " +
	"Your tone should be simple, encouraging, and direct. Do not use jargon. Format your response using markdown."

// ForecastText renders a forecast as "Date: 2025-01-01, Price: ₹2150.00; ...".
func ForecastText(points []PricePoint) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("Date: %s, Price: %s", p.Date, p.PredictedPrice.Rupees())
	}
	return strings.Join(parts, "; ")
}

// AnalysisQuery builds the user query asking for a forecast summary.
func AnalysisQuery(commodity, market string, points []PricePoint) string {
	return fmt.Sprintf("Analyze the following %d-day price forecast for %s at %s market. "+
		"Based on this data, provide a short, bulleted summary of the trend and one piece of practical advice for a farmer. "+
		"The forecast is: %s", len(points), commodity, market, ForecastText(points))
}

// WeatherAdvisorPrompt is the system prompt for weather-based crop advice.
const WeatherAdvisorPrompt = "You are an expert agricultural advisor for Indian farming. " +
	"Provide clear, actionable advice in markdown bullet points."

// SoilAdvisorPrompt is the system prompt for soil-based crop advice.
const SoilAdvisorPrompt = "You are an expert agricultural advisor for Indian farming. " +
	"Provide clear, actionable advice based on live soil conditions. Use simple language and markdown bullet points."

// WeatherSummary renders a forecast as "Mon, Jan 2: Clear sky (32°C), ...".
func WeatherSummary(f WeatherForecast) string {
	parts := make([]string, len(f.Days))
	for i, d := range f.Days {
		parts[i] = fmt.Sprintf("%s: %s (%d°C)", d.Label, d.Weather.Description, d.TempMax)
	}
	return strings.Join(parts, ", ")
}

// WeatherAdviceQuery builds the user query asking for weather-based advice.
func WeatherAdviceQuery(crop, location string, f WeatherForecast) string {
	return fmt.Sprintf("For a farmer growing %s in %s, India, provide 2-3 specific suggestions "+
		"based on this %d-day weather forecast: %s", crop, location, len(f.Days), WeatherSummary(f))
}

// SoilAdviceQuery builds the user query asking for irrigation advice from a
// live reading. Missing temperature or humidity is left out.
func SoilAdviceQuery(crop string, r SensorReading) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I am growing %s. My farm sensor is reporting a current soil moisture of %.1f%%", crop, r.SoilMoisture)
	if r.Temperature != nil {
		fmt.Fprintf(&b, ", a temperature of %.1f°C", *r.Temperature)
	}
	if r.Humidity != nil {
		fmt.Fprintf(&b, ", and humidity of %.1f%%", *r.Humidity)
	}
	b.WriteString(". Based on these live conditions, what is one immediate action I should consider today? " +
		"Focus on irrigation (watering) advice. For example, if the soil is dry, recommend watering. " +
		"If it is wet, recommend holding off.")
	return b.String()
}
