package testing

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/agriinsight/harvest/agri"
)

// HTTPError makes Server answer with Status and a {"detail": Detail} body.
// Other errors from Backend become a 500 with the error text as detail.
type HTTPError struct {
	Status int
	Detail string
}

func (e HTTPError) Error() string { return e.Detail }

// Server serves a Backend over HTTP using the dashboard backend's routes and
// wire format. Readings pushed to it are served by the latest-data route in
// preference to the Backend.
type Server struct {
	*httptest.Server
	Backend *Backend

	mu     sync.Mutex
	pushed map[string]agri.SensorReading
}

// NewServer starts a Server over b and stops it when the test ends.
func NewServer(t *testing.T, b *Backend) *Server {
	t.Helper()
	s := &Server{Backend: b, pushed: make(map[string]agri.SensorReading)}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// Pushed returns the last reading pushed for deviceID.
func (s *Server) Pushed(deviceID string) (agri.SensorReading, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.pushed[deviceID]
	return r, ok
}

func (s *Server) routes() http.Handler {
	b := s.Backend
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/live-locations/states", func(w http.ResponseWriter, req *http.Request) {
		reply[[]string](w)(b.States(req.Context()))
	}).Methods(http.MethodGet)
	api.HandleFunc("/live-locations/districts", func(w http.ResponseWriter, req *http.Request) {
		reply[[]string](w)(b.Districts(req.Context(), req.URL.Query().Get("state")))
	}).Methods(http.MethodGet)
	api.HandleFunc("/live-locations/markets", func(w http.ResponseWriter, req *http.Request) {
		reply[[]string](w)(b.Markets(req.Context(), req.URL.Query().Get("district")))
	}).Methods(http.MethodGet)

	api.HandleFunc("/locations/search", func(w http.ResponseWriter, req *http.Request) {
		reply[[]agri.Place](w)(b.Search(req.Context(), req.URL.Query().Get("q")))
	}).Methods(http.MethodGet)
	api.HandleFunc("/locations/all-markets", func(w http.ResponseWriter, req *http.Request) {
		reply[[]string](w)(b.AllMarkets(req.Context()))
	}).Methods(http.MethodGet)
	api.HandleFunc("/locations/commodities", func(w http.ResponseWriter, req *http.Request) {
		reply[[]string](w)(b.Commodities(req.Context()))
	}).Methods(http.MethodGet)

	api.HandleFunc("/prices/live", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		reply[[]agri.PriceRecord](w)(b.LivePrices(req.Context(), agri.Market{
			State:    q.Get("state"),
			District: q.Get("district"),
			Market:   q.Get("market"),
		}))
	}).Methods(http.MethodGet)
	api.HandleFunc("/predict/price", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		reply[[]agri.PricePoint](w)(b.PricePrediction(req.Context(), q.Get("commodity"), q.Get("market")))
	}).Methods(http.MethodGet)

	api.HandleFunc("/weather/", func(w http.ResponseWriter, req *http.Request) {
		lat, err1 := strconv.ParseFloat(req.URL.Query().Get("lat"), 64)
		lon, err2 := strconv.ParseFloat(req.URL.Query().Get("lon"), 64)
		if err := errors.Join(err1, err2); err != nil {
			fail(w, HTTPError{Status: http.StatusUnprocessableEntity, Detail: err.Error()})
			return
		}
		f, err := b.Weather(req.Context(), lat, lon)
		if err != nil {
			fail(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]any{"daily": series(f)})
	}).Methods(http.MethodGet)

	api.HandleFunc("/iot/latest-data/{device}", func(w http.ResponseWriter, req *http.Request) {
		device := mux.Vars(req)["device"]
		if r, ok := s.Pushed(device); ok {
			respond(w, http.StatusOK, r)
			return
		}
		reply[agri.SensorReading](w)(b.LatestReading(req.Context(), device))
	}).Methods(http.MethodGet)
	api.HandleFunc("/iot/sensor-data", func(w http.ResponseWriter, req *http.Request) {
		var r agri.SensorReading
		if err := json.NewDecoder(req.Body).Decode(&r); err != nil {
			fail(w, HTTPError{Status: http.StatusUnprocessableEntity, Detail: err.Error()})
			return
		}
		s.mu.Lock()
		s.pushed[r.DeviceID] = r
		s.mu.Unlock()
		respond(w, http.StatusOK, map[string]string{"status": "success", "device_id": r.DeviceID})
	}).Methods(http.MethodPost)

	api.HandleFunc("/advisor/generate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			SystemPrompt string `json:"system_prompt"`
			UserQuery    string `json:"user_query"`
		}
		if !bind(w, req, &body) {
			return
		}
		advise(w)(b.Generate(req.Context(), body.SystemPrompt, body.UserQuery))
	}).Methods(http.MethodPost)
	api.HandleFunc("/advisor/weather-suggestion", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			CropName     string             `json:"crop_name"`
			WeatherData  []agri.DayForecast `json:"weather_data"`
			LocationName string             `json:"location_name"`
		}
		if !bind(w, req, &body) {
			return
		}
		f := agri.WeatherForecast{Days: body.WeatherData}
		advise(w)(b.WeatherAdvice(req.Context(), body.CropName, f, body.LocationName))
	}).Methods(http.MethodPost)
	api.HandleFunc("/advisor/soil-suggestion", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			CropName     string   `json:"crop_name"`
			SoilMoisture float64  `json:"soil_moisture"`
			Temperature  *float64 `json:"temperature"`
			Humidity     *float64 `json:"humidity"`
		}
		if !bind(w, req, &body) {
			return
		}
		advise(w)(b.SoilAdvice(req.Context(), body.CropName, agri.SensorReading{
			SoilMoisture: body.SoilMoisture,
			Temperature:  body.Temperature,
			Humidity:     body.Humidity,
		}))
	}).Methods(http.MethodPost)

	return r
}

// reply writes v, or the error, as JSON.
func reply[V any](w http.ResponseWriter) func(V, error) {
	return func(v V, err error) {
		if err != nil {
			fail(w, err)
			return
		}
		respond(w, http.StatusOK, v)
	}
}

func advise(w http.ResponseWriter) func(string, error) {
	return func(text string, err error) {
		if err != nil {
			fail(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]string{"advice": text})
	}
}

func bind(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		fail(w, HTTPError{Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return false
	}
	return true
}

func fail(w http.ResponseWriter, err error) {
	var he HTTPError
	if !errors.As(err, &he) {
		he = HTTPError{Status: http.StatusInternalServerError, Detail: err.Error()}
	}
	respond(w, he.Status, map[string]string{"detail": he.Detail})
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// series converts a forecast back into the column layout the weather route
// serves.
func series(f agri.WeatherForecast) agri.DailySeries {
	var d agri.DailySeries
	for _, day := range f.Days {
		d.Time = append(d.Time, day.Date.Format("2006-01-02"))
		d.WeatherCode = append(d.WeatherCode, float64(day.Weather.Code))
		d.TempMax = append(d.TempMax, float64(day.TempMax))
		d.TempMin = append(d.TempMin, float64(day.TempMin))
	}
	return d
}
