package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
	"github.com/agriinsight/harvest/pages"
)

type soilScreen struct {
	page *pages.Soil
}

func newSoilScreen(ctx context.Context, deps pages.Deps, s pages.Settings, notify func()) *soilScreen {
	return &soilScreen{page: pages.OpenSoil(ctx, deps, s, notify)}
}

func (s *soilScreen) typing() bool { return false }

func (s *soilScreen) key(msg tea.KeyMsg) (tea.Cmd, error) {
	snap := s.page.Snapshot()
	switch {
	case key.Matches(msg, keys.Left):
		s.page.SelectCrop(cycle(snap.Crops, snap.Crop, -1))
	case key.Matches(msg, keys.Right):
		s.page.SelectCrop(cycle(snap.Crops, snap.Crop, 1))
	case key.Matches(msg, keys.Advise):
		return nil, s.page.Advise()
	}
	return nil, nil
}

func (s *soilScreen) view(f frame) string {
	snap := s.page.Snapshot()

	var b strings.Builder
	b.WriteString(f.st.Title.Render("Soil Moisture"))
	b.WriteString("\n")
	b.WriteString(f.st.Muted.Render(fmt.Sprintf("Device %s • %d polls", snap.DeviceID, snap.Ticks)))
	b.WriteString("\n\n")

	switch {
	case snap.HasReading && snap.Reading.Message != "":
		b.WriteString(f.st.Muted.Render(snap.Reading.Message))
	case snap.HasReading:
		r := snap.Reading
		band := f.st.Success
		switch snap.Band {
		case agri.MoistureDry:
			band = f.st.Error
		case agri.MoistureWet:
			band = f.st.Warning
		}
		b.WriteString(fmt.Sprintf("Moisture     %5.1f%%  %s\n", r.SoilMoisture, band.Render(snap.Band.String())))
		optional := []struct {
			label string
			value *float64
			unit  string
		}{
			{"Temperature", r.Temperature, "°C"},
			{"Humidity", r.Humidity, "%"},
			{"Fertility", r.SoilFertility, ""},
			{"Light", r.LightIntensity, " lx"},
		}
		for _, o := range optional {
			if o.value != nil {
				b.WriteString(fmt.Sprintf("%-12s %5.1f%s\n", o.label, *o.value, o.unit))
			}
		}
	case snap.Status == harvest.StatusLoading:
		b.WriteString(f.spin + " waiting for the first reading")
	}
	if snap.Status == harvest.StatusFailed {
		b.WriteString("\n" + f.st.Error.Render(snap.Message))
	}

	b.WriteString("\n\n")
	b.WriteString(f.st.Label.Render("Crop: ") + snap.Crop)
	switch snap.Advice.TextStatus {
	case harvest.StatusLoading:
		b.WriteString("\n" + f.spin + " asking for advice")
	case harvest.StatusFailed:
		b.WriteString("\n" + f.st.Error.Render(snap.AdviceMessage))
	case harvest.StatusReady:
		b.WriteString("\n" + f.md(snap.Advice.Text))
	}
	return b.String()
}

func (s *soilScreen) help() string { return "←/→ crop • a irrigation advice" }

func (s *soilScreen) close() { s.page.Close() }
