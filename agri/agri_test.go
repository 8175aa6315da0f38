package agri

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
	}{
		{`2150`, 2150},
		{`2150.5`, 2150.5},
		{`"2150"`, 2150},
		{`" 2150.50 "`, 2150.5},
		{`""`, 0},
		{`null`, 0},
	}
	for _, tc := range cases {
		var a Amount
		require.NoError(t, json.Unmarshal([]byte(tc.in), &a), tc.in)
		assert.Equal(t, tc.want, a, tc.in)
	}

	var bad Amount
	assert.Error(t, json.Unmarshal([]byte(`"n/a"`), &bad))
}

func TestPriceRecord_Decode(t *testing.T) {
	body := `[{"state":"Andhra Pradesh","district":"Prakasam","market":"Ongole","commodity":"Tomato",
		"variety":"Local","arrival_date":"14/10/2026","min_price":"1000","max_price":"1400","modal_price":"1200"}]`

	var records []PriceRecord
	require.NoError(t, json.Unmarshal([]byte(body), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Tomato", records[0].Commodity)
	assert.Equal(t, Amount(1200), records[0].ModalPrice)
}

func TestPlace_Label(t *testing.T) {
	assert.Equal(t, "Ongole, Andhra Pradesh", Place{Name: "Ongole", State: "Andhra Pradesh"}.Label())
	assert.Equal(t, "Ongole", Place{Name: "Ongole"}.Label())
}

func TestMarket_Complete(t *testing.T) {
	assert.True(t, Market{"Andhra Pradesh", "Prakasam", "Ongole"}.Complete())
	assert.False(t, Market{State: "Andhra Pradesh", District: "Prakasam"}.Complete())
}

func TestSensorReading_Equal(t *testing.T) {
	a := SensorReading{DeviceID: "farm01", SoilMoisture: 45, Temperature: Float(29.5)}
	b := SensorReading{DeviceID: "farm01", SoilMoisture: 45, Temperature: Float(29.5)}
	assert.True(t, a.Equal(b))

	b.Temperature = Float(30)
	assert.False(t, a.Equal(b))

	b.Temperature = nil
	assert.False(t, a.Equal(b))
}

func TestDescribeWeather(t *testing.T) {
	assert.Equal(t, "Clear sky", DescribeWeather(0).Description)
	assert.Equal(t, "Moderate rain", DescribeWeather(63).Description)
	assert.Equal(t, 63, DescribeWeather(63).Code)
	assert.Equal(t, "Unknown", DescribeWeather(99).Description)
}

func TestDailySeries_Forecast(t *testing.T) {
	series := DailySeries{
		Time:        []string{"2026-10-16", "2026-10-17"},
		WeatherCode: []float64{3, 61},
		TempMax:     []float64{33.6, 31.2},
		TempMin:     []float64{24.4, 23.5},
	}

	f, err := series.Forecast()
	require.NoError(t, err)
	require.Len(t, f.Days, 2)
	assert.Equal(t, "Fri, Oct 16", f.Days[0].Label)
	assert.Equal(t, "Overcast", f.Days[0].Weather.Description)
	assert.Equal(t, 34, f.Days[0].TempMax)
	assert.Equal(t, 24, f.Days[0].TempMin)
	assert.Equal(t, "Slight rain", f.Days[1].Weather.Description)
	assert.False(t, f.Empty())
}

func TestDailySeries_Ragged(t *testing.T) {
	_, err := DailySeries{Time: []string{"2026-10-16"}}.Forecast()
	assert.Error(t, err)

	_, err = DailySeries{
		Time:        []string{"16/10/2026"},
		WeatherCode: []float64{0},
		TempMax:     []float64{1},
		TempMin:     []float64{1},
	}.Forecast()
	assert.Error(t, err)
}

func TestClassifyMoisture(t *testing.T) {
	assert.Equal(t, MoistureDry, ClassifyMoisture(12))
	assert.Equal(t, MoistureGood, ClassifyMoisture(30))
	assert.Equal(t, MoistureGood, ClassifyMoisture(59.9))
	assert.Equal(t, MoistureWet, ClassifyMoisture(60))
	assert.Equal(t, "Dry", MoistureDry.String())
	assert.Equal(t, "Wet", MoistureWet.String())
	assert.Equal(t, "Unknown", MoistureBand(9).String())
}

func TestAnalysisQuery(t *testing.T) {
	points := []PricePoint{
		{Date: "2026-10-16", PredictedPrice: 2100},
		{Date: "2026-10-17", PredictedPrice: 2150.456},
	}

	assert.Equal(t, "Date: 2026-10-16, Price: ₹2100.00; Date: 2026-10-17, Price: ₹2150.46", ForecastText(points))

	q := AnalysisQuery("Onion", "Ongole", points)
	assert.Contains(t, q, "2-day price forecast for Onion at Ongole market")
	assert.Contains(t, q, "The forecast is: Date: 2026-10-16")
}

func TestWeatherAdviceQuery(t *testing.T) {
	f := WeatherForecast{Days: []DayForecast{
		{Label: "Fri, Oct 16", Weather: DescribeWeather(0), TempMax: 32},
		{Label: "Sat, Oct 17", Weather: DescribeWeather(61), TempMax: 29},
	}}
	q := WeatherAdviceQuery("Rice", "Ongole, Andhra Pradesh", f)
	assert.Equal(t, "For a farmer growing Rice in Ongole, Andhra Pradesh, India, provide 2-3 specific suggestions "+
		"based on this 2-day weather forecast: Fri, Oct 16: Clear sky (32°C), Sat, Oct 17: Slight rain (29°C)", q)
}

func TestSoilAdviceQuery(t *testing.T) {
	full := SoilAdviceQuery("Tomato", SensorReading{SoilMoisture: 22.4, Temperature: Float(31), Humidity: Float(64.5)})
	assert.Contains(t, full, "soil moisture of 22.4%, a temperature of 31.0°C, and humidity of 64.5%.")

	bare := SoilAdviceQuery("Tomato", SensorReading{SoilMoisture: 70})
	assert.Contains(t, bare, "soil moisture of 70.0%. Based on")
	assert.NotContains(t, bare, "temperature")
}
