package pages

import (
	"context"
	"sync"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
)

// Soil is the soil moisture page. It polls the field device while open and
// offers crop advice for the latest reading.
type Soil struct {
	view     *harvest.View
	poller   *harvest.Poller[agri.SensorReading]
	advisory *harvest.Advisory[agri.SensorReading]
	deviceID string

	mu    sync.Mutex
	crop  string
	crops []string
}

// SoilSnapshot is what the soil page renders.
type SoilSnapshot struct {
	DeviceID   string
	Reading    agri.SensorReading
	HasReading bool
	Band       agri.MoistureBand
	Status     harvest.Status
	Message    string
	Ticks      int

	Crop  string
	Crops []string

	Advice        harvest.AdvisorySnapshot[agri.SensorReading]
	AdviceMessage string
	CanAdvise     bool
}

// OpenSoil opens the soil page and starts polling the configured device.
func OpenSoil(parent context.Context, deps Deps, s Settings, onChange func()) *Soil {
	view := open(parent, "soil", onChange)
	sp := &Soil{
		view:     view,
		deviceID: s.DeviceID,
		crops:    s.Crops,
	}
	if len(s.Crops) > 0 {
		sp.crop = s.Crops[0]
	}

	advise := guard("soil-advice", func(ctx context.Context, in adviceInput[agri.SensorReading]) (string, error) {
		return deps.Advisor.SoilAdvice(ctx, in.crop, in.data)
	}, s)
	sp.advisory = harvest.NewAdvisory(view.Context(), func(ctx context.Context, r agri.SensorReading, crop string) (string, error) {
		return advise(ctx, adviceInput[agri.SensorReading]{data: r, crop: crop})
	}).
		Equal(func(a, b agri.SensorReading) bool { return a.Equal(b) }).
		Clock(deps.clock()).
		Metrics(deps.metrics()).
		OnChange(view.Notify)

	var fallback []harvest.Option[string, agri.SensorReading]
	if deps.SensorsFallback != nil {
		fallback = append(fallback, harvest.WithFallback[string, agri.SensorReading](deps.SensorsFallback.LatestReading))
	}
	latest := guard("sensor", deps.Sensors.LatestReading, s, fallback...)
	policy := s.PollPolicy
	sp.poller = harvest.NewPoller(func(ctx context.Context) (agri.SensorReading, error) {
		return latest(ctx, s.DeviceID)
	}, s.PollInterval).
		Name("soil").
		Clock(deps.clock()).
		Policy(policy).
		Metrics(deps.metrics()).
		ErrorHistorySize(5).
		OnUpdate(func(r agri.SensorReading, err error) {
			switch {
			case err == nil:
				sp.advisory.Replace(r)
			case policy == harvest.BlankOnError:
				sp.advisory.Reset()
			}
			view.Notify()
		})

	_ = sp.poller.Start(view.Context())
	view.Own(sp.poller.Stop)
	return sp
}

// SelectCrop sets the crop advice is asked for.
func (sp *Soil) SelectCrop(crop string) {
	sp.mu.Lock()
	sp.crop = crop
	sp.mu.Unlock()
	sp.view.Notify()
}

// CanAdvise reports whether the advice action is enabled.
func (sp *Soil) CanAdvise() bool {
	sp.mu.Lock()
	crop := sp.crop
	sp.mu.Unlock()
	return crop != "" && sp.advisory.CanRequest()
}

// Advise asks for crop advice for the displayed reading.
func (sp *Soil) Advise() error {
	sp.mu.Lock()
	crop := sp.crop
	sp.mu.Unlock()

	if crop == "" {
		return harvest.ErrNotReady
	}
	return sp.advisory.Request(crop)
}

// Ticks returns the number of sensor fetches issued since the page opened.
func (sp *Soil) Ticks() int { return sp.poller.Ticks() }

// Snapshot returns the current page state.
func (sp *Soil) Snapshot() SoilSnapshot {
	reading, ok := sp.poller.Current()
	advice := sp.advisory.Snapshot()
	canAdvise := sp.CanAdvise()

	snap := SoilSnapshot{
		DeviceID:      sp.deviceID,
		Reading:       reading,
		HasReading:    ok,
		Status:        sp.poller.Status(),
		Message:       harvest.Message(sp.poller.LastError(), MsgSensor),
		Ticks:         sp.poller.Ticks(),
		Advice:        advice,
		AdviceMessage: harvest.Message(advice.TextErr, MsgSoilAdvice),
		CanAdvise:     canAdvise,
	}
	if ok {
		snap.Band = agri.ClassifyMoisture(reading.SoilMoisture)
	}

	sp.mu.Lock()
	snap.Crop = sp.crop
	snap.Crops = append([]string(nil), sp.crops...)
	sp.mu.Unlock()
	return snap
}

// ID returns the id of the page's view.
func (sp *Soil) ID() string { return sp.view.ID() }

// Close stops polling and tears the page down.
func (sp *Soil) Close() { sp.view.Close() }
