package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agriinsight/harvest"
	"github.com/agriinsight/harvest/pages"
)

type predictionScreen struct {
	page  *pages.Prediction
	lists [2]picker
	focus int
}

func newPredictionScreen(ctx context.Context, deps pages.Deps, s pages.Settings, notify func()) *predictionScreen {
	return &predictionScreen{
		page:  pages.OpenPrediction(ctx, deps, s, notify),
		lists: [2]picker{{title: "Commodity"}, {title: "Market"}},
	}
}

func (s *predictionScreen) sync() pages.PredictionSnapshot {
	snap := s.page.Snapshot()
	s.lists[0].sync(snap.Commodities, snap.Commodity)
	s.lists[1].sync(snap.Markets, snap.Market)
	return snap
}

func (s *predictionScreen) typing() bool { return false }

func (s *predictionScreen) key(msg tea.KeyMsg) (tea.Cmd, error) {
	s.sync()
	switch {
	case key.Matches(msg, keys.Left):
		s.focus = 0
	case key.Matches(msg, keys.Right):
		s.focus = 1
	case key.Matches(msg, keys.Up):
		s.lists[s.focus].move(-1)
	case key.Matches(msg, keys.Down):
		s.lists[s.focus].move(1)
	case key.Matches(msg, keys.Choose):
		v, ok := s.lists[s.focus].current()
		if !ok {
			return nil, harvest.ErrNotReady
		}
		if s.focus == 0 {
			s.page.SelectCommodity(v)
			s.focus = 1
		} else {
			s.page.SelectMarket(v)
		}
	case key.Matches(msg, keys.Fetch):
		return nil, s.page.Predict()
	case key.Matches(msg, keys.Advise):
		return nil, s.page.Analyze()
	}
	return nil, nil
}

func (s *predictionScreen) view(f frame) string {
	snap := s.sync()

	var b strings.Builder
	b.WriteString(f.st.Title.Render("Price Prediction"))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		s.lists[0].render(f.st, s.focus == 0, snap.ListStatus, snap.ListMessage, f.spin),
		s.lists[1].render(f.st, s.focus == 1, snap.ListStatus, snap.ListMessage, f.spin),
	))
	b.WriteString("\n\n")

	fc := snap.Forecast
	switch fc.DataStatus {
	case harvest.StatusLoading:
		b.WriteString(f.spin + " forecasting")
	case harvest.StatusFailed:
		b.WriteString(f.st.Error.Render(snap.ForecastMessage))
	default:
		if !fc.HasData {
			b.WriteString(f.st.Muted.Render("Pick a commodity and a market, then press f."))
			break
		}
		b.WriteString(f.st.Label.Render(fmt.Sprintf("%s at %s", fc.Data.Commodity, fc.Data.Market)))
		b.WriteString("\n")
		for _, p := range fc.Data.Points {
			b.WriteString(fmt.Sprintf("%-12s %12s\n", p.Date, p.PredictedPrice.Rupees()))
		}
	}

	switch fc.TextStatus {
	case harvest.StatusLoading:
		b.WriteString("\n" + f.spin + " analyzing")
	case harvest.StatusFailed:
		b.WriteString("\n" + f.st.Error.Render(snap.AnalysisMessage))
	case harvest.StatusReady:
		b.WriteString("\n" + f.md(fc.Text))
	}
	return b.String()
}

func (s *predictionScreen) help() string {
	return "←/→ list • ↑/↓ move • enter select • f forecast • a analyze"
}

func (s *predictionScreen) close() { s.page.Close() }
