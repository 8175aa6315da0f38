// Package agri defines the records exchanged with the agricultural data
// services and the collaborator interfaces the dashboard pages depend on.
package agri

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Place is a location search result.
type Place struct {
	Name  string  `json:"name"`
	State string  `json:"state"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// Label returns "Name, State", the form sent to the advisor.
func (p Place) Label() string {
	if p.State == "" {
		return p.Name
	}
	return p.Name + ", " + p.State
}

// Market identifies a market by its full location path.
type Market struct {
	State    string
	District string
	Market   string
}

// Complete reports whether every level is set.
func (m Market) Complete() bool {
	return m.State != "" && m.District != "" && m.Market != ""
}

// Amount is a price that upstream services encode either as a JSON number
// or as a numeric string.
type Amount float64

// UnmarshalJSON accepts 2150, 2150.5, "2150" and "2150.50". An empty string
// or null decodes to zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Rupees formats the amount as "₹2150.00".
func (a Amount) Rupees() string {
	return fmt.Sprintf("₹%.2f", float64(a))
}

// PriceRecord is one commodity row of a live market price report.
type PriceRecord struct {
	State       string `json:"state"`
	District    string `json:"district"`
	Market      string `json:"market"`
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	Grade       string `json:"grade,omitempty"`
	ArrivalDate string `json:"arrival_date,omitempty"`
	MinPrice    Amount `json:"min_price"`
	MaxPrice    Amount `json:"max_price"`
	ModalPrice  Amount `json:"modal_price"`
}

// PricePoint is one day of a price forecast.
type PricePoint struct {
	Date           string `json:"date"`
	PredictedPrice Amount `json:"predicted_price"`
}

// SensorReading is the latest state reported by a field device.
type SensorReading struct {
	DeviceID       string   `json:"device_id"`
	SoilMoisture   float64  `json:"soil_moisture"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Humidity       *float64 `json:"humidity,omitempty"`
	SoilFertility  *float64 `json:"soil_fertility,omitempty"`
	LightIntensity *float64 `json:"light_intensity,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// Equal reports whether two readings carry the same values.
func (r SensorReading) Equal(o SensorReading) bool {
	return r.DeviceID == o.DeviceID &&
		r.SoilMoisture == o.SoilMoisture &&
		eqPtr(r.Temperature, o.Temperature) &&
		eqPtr(r.Humidity, o.Humidity) &&
		eqPtr(r.SoilFertility, o.SoilFertility) &&
		eqPtr(r.LightIntensity, o.LightIntensity) &&
		r.Message == o.Message
}

func eqPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Float returns a pointer to v, for optional reading fields.
func Float(v float64) *float64 { return &v }
