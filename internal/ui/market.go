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

type marketScreen struct {
	page   *pages.MarketPrices
	levels [3]picker
	focus  int
}

func newMarketScreen(ctx context.Context, deps pages.Deps, s pages.Settings, notify func()) *marketScreen {
	return &marketScreen{
		page: pages.OpenMarketPrices(ctx, deps, s, notify),
		levels: [3]picker{
			{title: "State"},
			{title: "District"},
			{title: "Market"},
		},
	}
}

func (s *marketScreen) sync() pages.MarketPricesSnapshot {
	snap := s.page.Snapshot()
	for i, l := range []harvest.LevelSnapshot{snap.Cascade.State, snap.Cascade.District, snap.Cascade.Market} {
		s.levels[i].sync(l.Options, l.Selected)
	}
	return snap
}

func (s *marketScreen) typing() bool { return false }

func (s *marketScreen) key(msg tea.KeyMsg) (tea.Cmd, error) {
	s.sync()
	switch {
	case key.Matches(msg, keys.Left):
		s.focus = max(s.focus-1, 0)
	case key.Matches(msg, keys.Right):
		s.focus = min(s.focus+1, len(s.levels)-1)
	case key.Matches(msg, keys.Up):
		s.levels[s.focus].move(-1)
	case key.Matches(msg, keys.Down):
		s.levels[s.focus].move(1)
	case key.Matches(msg, keys.Choose):
		v, ok := s.levels[s.focus].current()
		if !ok {
			return nil, harvest.ErrNotReady
		}
		var err error
		switch s.focus {
		case 0:
			err = s.page.SelectState(v)
		case 1:
			err = s.page.SelectDistrict(v)
		default:
			err = s.page.SelectMarket(v)
		}
		if err == nil && s.focus < len(s.levels)-1 {
			s.focus++
		}
		return nil, err
	case key.Matches(msg, keys.Fetch):
		return nil, s.page.FetchPrices()
	}
	return nil, nil
}

func (s *marketScreen) view(f frame) string {
	snap := s.sync()
	levels := []harvest.LevelSnapshot{snap.Cascade.State, snap.Cascade.District, snap.Cascade.Market}

	cols := make([]string, len(s.levels))
	for i := range s.levels {
		cols[i] = s.levels[i].render(f.st, i == s.focus, levels[i].Status, snap.Messages[i], f.spin)
	}

	var b strings.Builder
	b.WriteString(f.st.Title.Render("Live Market Prices"))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n\n")

	switch snap.Status {
	case harvest.StatusLoading:
		b.WriteString(f.spin + " fetching prices")
	case harvest.StatusFailed:
		b.WriteString(f.st.Error.Render(snap.Message))
	case harvest.StatusReady:
		b.WriteString(f.st.Label.Render(fmt.Sprintf("%s, %s, %s", snap.Market.Market, snap.Market.District, snap.Market.State)))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%-16s %-12s %12s %12s %12s\n", "Commodity", "Variety", "Min", "Max", "Modal"))
		for _, r := range snap.Records {
			b.WriteString(fmt.Sprintf("%-16s %-12s %12s %12s %12s\n",
				r.Commodity, r.Variety, r.MinPrice.Rupees(), r.MaxPrice.Rupees(), r.ModalPrice.Rupees()))
		}
	default:
		if snap.CanFetch {
			b.WriteString(f.st.Muted.Render("Press f to fetch prices."))
		} else {
			b.WriteString(f.st.Muted.Render("Pick a state, district and market."))
		}
	}
	return b.String()
}

func (s *marketScreen) help() string {
	return "←/→ level • ↑/↓ move • enter select • f fetch prices"
}

func (s *marketScreen) close() { s.page.Close() }
