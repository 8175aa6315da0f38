package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/agri"
	"github.com/agriinsight/harvest/pages"
)

type weatherScreen struct {
	page    *pages.Weather
	input   textinput.Model
	results picker
	places  []agri.Place
}

func newWeatherScreen(ctx context.Context, deps pages.Deps, s pages.Settings, notify func()) *weatherScreen {
	ti := textinput.New()
	ti.Placeholder = "Search for a city or district"
	ti.CharLimit = 64
	ti.Prompt = "/ "

	return &weatherScreen{
		page:    pages.OpenWeather(ctx, deps, s, notify),
		input:   ti,
		results: picker{title: "Results"},
	}
}

func (s *weatherScreen) sync() pages.WeatherSnapshot {
	snap := s.page.Snapshot()
	s.places = snap.Results
	labels := make([]string, len(snap.Results))
	for i, p := range snap.Results {
		labels[i] = p.Label()
	}
	s.results.sync(labels, "")
	return snap
}

func (s *weatherScreen) typing() bool { return s.input.Focused() }

func (s *weatherScreen) key(msg tea.KeyMsg) (tea.Cmd, error) {
	snap := s.sync()

	if s.input.Focused() {
		switch {
		case key.Matches(msg, keys.Leave):
			s.input.Blur()
			return nil, nil
		case msg.Type == tea.KeyDown, msg.Type == tea.KeyEnter:
			s.input.Blur()
			return nil, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		s.page.Type(s.input.Value())
		return cmd, nil
	}

	switch {
	case key.Matches(msg, keys.Search):
		return s.input.Focus(), nil
	case key.Matches(msg, keys.Up):
		s.results.move(-1)
	case key.Matches(msg, keys.Down):
		s.results.move(1)
	case key.Matches(msg, keys.Choose):
		if s.results.cursor >= len(s.places) {
			return nil, harvest.ErrNotReady
		}
		place := s.places[s.results.cursor]
		s.input.SetValue("")
		return nil, s.page.SelectPlace(place)
	case key.Matches(msg, keys.Left):
		s.page.SelectCrop(cycle(snap.Crops, snap.Crop, -1))
	case key.Matches(msg, keys.Right):
		s.page.SelectCrop(cycle(snap.Crops, snap.Crop, 1))
	case key.Matches(msg, keys.Advise):
		return nil, s.page.Advise()
	}
	return nil, nil
}

func (s *weatherScreen) view(f frame) string {
	snap := s.sync()

	var b strings.Builder
	b.WriteString(f.st.Title.Render("Weather Forecast"))
	b.WriteString("\n")
	b.WriteString(s.input.View())
	if snap.Searching {
		b.WriteString(" " + f.spin)
	}
	b.WriteString("\n")
	if len(snap.Results) > 0 {
		b.WriteString(s.results.render(f.st, !s.input.Focused(), harvest.StatusReady, "", f.spin))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fc := snap.Forecast
	switch fc.DataStatus {
	case harvest.StatusLoading:
		b.WriteString(f.spin + " loading forecast for " + snap.Location.Label())
	case harvest.StatusFailed:
		b.WriteString(f.st.Error.Render(snap.ForecastMessage))
	default:
		if fc.HasData {
			b.WriteString(f.st.Label.Render(fc.Data.Location.Label()))
			b.WriteString("\n")
			for _, d := range fc.Data.Forecast.Days {
				b.WriteString(fmt.Sprintf("%-12s %s %-22s %3d°C / %3d°C\n",
					d.Label, d.Weather.Icon, d.Weather.Description, d.TempMax, d.TempMin))
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(f.st.Label.Render("Crop: ") + snap.Crop)
	switch fc.TextStatus {
	case harvest.StatusLoading:
		b.WriteString("\n" + f.spin + " asking for advice")
	case harvest.StatusFailed:
		b.WriteString("\n" + f.st.Error.Render(snap.AdviceMessage))
	case harvest.StatusReady:
		b.WriteString("\n" + f.md(fc.Text))
	}
	return b.String()
}

func (s *weatherScreen) help() string {
	if s.input.Focused() {
		return "type to search • esc/enter done"
	}
	return "/ search • ↑/↓ move • enter pick place • ←/→ crop • a advice"
}

func (s *weatherScreen) close() { s.page.Close() }

// cycle returns the option delta steps from current, wrapping around.
func cycle(options []string, current string, delta int) string {
	if len(options) == 0 {
		return current
	}
	i := 0
	for j, o := range options {
		if o == current {
			i = j
			break
		}
	}
	return options[(i+delta+len(options))%len(options)]
}
