package tui

import "time"

type Option func(*Model)

// WithAsOf pins the first load to asOf instead of the service clock.
func WithAsOf(asOf time.Time) Option {
	return func(m *Model) {
		m.asOf = asOf
	}
}

// WithReportStyle selects the glamour style for the report view ("dark", "light", "notty").
func WithReportStyle(style string) Option {
	return func(m *Model) {
		if style != "" {
			m.markdown = &markdownRenderer{style: style}
		}
	}
}

// WithTab selects the view shown after startup.
func WithTab(name string) Option {
	return func(m *Model) {
		for i, title := range tabTitles {
			if title == name {
				m.tab = tab(i)
				return
			}
		}
	}
}
