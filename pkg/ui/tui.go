// Package ui provides the Bubble Tea TUI for the arbitrage simulator.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	arbdomain "arbsim/business/arbitrage/domain"
	mdapp "arbsim/business/marketdata/app"
	pfapp "arbsim/business/portfolio/app"
)

const maxActivityLines = 8

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	opportunities table.Model

	running     bool
	dailyTrades int
	summary     mdapp.Summary
	portfolio   pfapp.Status
	hasStatus   bool

	activity []string
	width    int
	height   int
	quitting bool
}

// New creates the dashboard model.
func New() Model {
	columns := []table.Column{
		{Title: "Pair", Width: 10},
		{Title: "Buy", Width: 12},
		{Title: "Sell", Width: 12},
		{Title: "Spread", Width: 9},
		{Title: "Est. Profit", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Bold(true).
		Foreground(ColorPrimary).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder())
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(ColorBorder)
	t.SetStyles(styles)

	return Model{
		opportunities: t,
		activity:      make([]string, 0, maxActivityLines),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			m.activity = m.activity[:0]
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		return m, tickCmd()

	case BotStateMsg:
		m.running = msg.Running
		if msg.Running {
			m.log("bot started")
		} else {
			m.log("bot stopped")
		}
		return m, nil

	case MarketUpdateMsg:
		m.summary = msg.Summary
		m.opportunities.SetRows(opportunityRows(msg.Opportunities))
		return m, nil

	case TradeMsg:
		m.portfolio = msg.Portfolio
		m.hasStatus = true
		m.dailyTrades = msg.DailyTrades
		if msg.Trade != nil {
			outcome := "failed"
			if msg.Trade.Success {
				outcome = "filled"
			}
			m.log(fmt.Sprintf("trade %s %s net $%s",
				outcome, msg.Trade.Pair, msg.Trade.NetProfit.StringFixed(2)))
		}
		return m, nil

	case PortfolioMsg:
		m.portfolio = msg.Portfolio
		m.hasStatus = true
		return m, nil

	case ScanMsg:
		m.log(fmt.Sprintf("scan: %d opportunities", msg.OpportunityCount))
		return m, nil

	case LogMsg:
		m.log(msg.Message)
		return m, nil
	}

	var cmd tea.Cmd
	m.opportunities, cmd = m.opportunities.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	title := TitleStyle.Render("ARBITRAGE SIMULATOR")

	status := StatusStopped.Render("STOPPED")
	if m.running {
		status = StatusRunning.Render("RUNNING")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		title, "  ", status, "  ",
		MutedValue.Render(m.summary.Status+" | "+m.summary.DataSource))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		BoxStyle.Render(m.portfolioPanel()),
		BoxStyle.Render(m.opportunities.View()),
	)

	activity := BoxStyle.Render(m.activityPanel())
	help := HelpStyle.Render("q quit • c clear • ↑/↓ scroll opportunities")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, activity, help) + "\n"
}

func (m Model) portfolioPanel() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("PORTFOLIO"))
	b.WriteString("\n")

	if !m.hasStatus {
		b.WriteString(MutedValue.Render("waiting for data"))
		return b.String()
	}

	p := m.portfolio
	returnStyle := PositiveValue
	if p.TotalReturnPct < 0 {
		returnStyle = NegativeValue
	}

	fmt.Fprintf(&b, "Value:     $%s\n", p.TotalValue.StringFixed(2))
	fmt.Fprintf(&b, "Return:    %s\n", returnStyle.Render(fmt.Sprintf("%+.2f%%", p.TotalReturnPct)))
	fmt.Fprintf(&b, "Cash:      $%s\n", p.CurrentBalance.StringFixed(2))
	fmt.Fprintf(&b, "Win rate:  %.1f%%\n", p.Metrics.WinRate)
	fmt.Fprintf(&b, "Sharpe:    %.2f\n", p.Metrics.SharpeRatio)
	fmt.Fprintf(&b, "Drawdown:  %.2f%%\n", p.Metrics.MaxDrawdownPct)
	fmt.Fprintf(&b, "Trades:    %d (today %d)", p.Metrics.TotalTrades, m.dailyTrades)
	return b.String()
}

func (m Model) activityPanel() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("ACTIVITY"))
	b.WriteString("\n")
	if len(m.activity) == 0 {
		b.WriteString(MutedValue.Render("no activity yet"))
		return b.String()
	}
	b.WriteString(strings.Join(m.activity, "\n"))
	return b.String()
}

func (m *Model) log(line string) {
	stamped := fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), line)
	m.activity = append(m.activity, stamped)
	if len(m.activity) > maxActivityLines {
		m.activity = m.activity[len(m.activity)-maxActivityLines:]
	}
}

func opportunityRows(opps []arbdomain.Opportunity) []table.Row {
	rows := make([]table.Row, 0, len(opps))
	for _, o := range opps {
		rows = append(rows, table.Row{
			o.Symbol,
			o.BuyExchange,
			o.SellExchange,
			o.ProfitPercent().StringFixed(2) + "%",
			"$" + o.EstimatedProfit.StringFixed(2),
		})
	}
	return rows
}
