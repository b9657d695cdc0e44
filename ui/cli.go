package ui

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/awion/sentinel-dash/model"
	"github.com/awion/sentinel-dash/public/collector"
	"github.com/awion/sentinel-dash/public/storage"
)

// Terminal colors
var (
	colorRed       = color.New(color.FgRed).SprintFunc()
	colorYellow    = color.New(color.FgYellow).SprintFunc()
	colorBlue      = color.New(color.FgBlue).SprintFunc()
	colorMagenta   = color.New(color.FgMagenta).SprintFunc()
	colorCyan      = color.New(color.FgCyan).SprintFunc()
	colorGreen     = color.New(color.FgGreen).SprintFunc()
	colorWhite     = color.New(color.FgWhite).SprintFunc()
	colorBold      = color.New(color.Bold).SprintFunc()
	colorHighlight = color.New(color.BgBlue, color.FgWhite).SprintFunc()
)

var (
	alertHeader   = []string{"Severity", "Rule", "Description", "Entities", "Created"}
	logHeader     = []string{"Time", "User", "Action", "Status", "Device", "Source IP"}
	historyLimit  = 50
	errQuit       = errors.New("quit requested")
	clearSequence = "\033[H\033[2J"
)

// severityColorFunc returns the color function for a severity style class
func severityColorFunc(class string) func(a ...interface{}) string {
	sev, _ := model.ParseSeverity(strings.TrimPrefix(class, "severity-"))
	switch sev {
	case model.SeverityCritical:
		return colorRed
	case model.SeverityHigh:
		return colorMagenta
	case model.SeverityMedium:
		return colorYellow
	case model.SeverityLow:
		return colorBlue
	default:
		return colorWhite
	}
}

// CLIConfig holds the CLI display settings
type CLIConfig struct {
	RefreshInterval time.Duration
	MaxCellWidth    int
	ServerURL       string
}

// CLI is the interactive terminal front-end of the dashboard. It owns the
// board the dashboard renders into and is the notifier for its notices.
type CLI struct {
	dashboard  *Dashboard
	board      *storage.Board
	poller     *collector.Poller
	logger     *zap.Logger
	in         io.Reader
	out        io.Writer
	outMu      sync.Mutex
	config     CLIConfig
	startTime  time.Time
	cmdHistory []string

	seenMu     sync.Mutex
	seenAlerts map[string]bool
}

// NewCLI creates the terminal front-end. The dashboard is built from source
// with the CLI's own board as surface, selector and trigger.
func NewCLI(source Source, opts Options, cfg CLIConfig, in io.Reader, out io.Writer) (*CLI, error) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 15 * time.Second
	}
	if cfg.MaxCellWidth <= 0 {
		cfg.MaxCellWidth = 48
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = cfg.RefreshInterval
	}

	c := &CLI{
		board:      storage.NewBoard(IngestLabel),
		logger:     opts.Logger,
		in:         in,
		out:        out,
		config:     cfg,
		startTime:  time.Now(),
		cmdHistory: make([]string, 0, historyLimit),
	}

	opts.Source = source
	opts.Surface = c.board
	opts.Selector = c.board
	opts.Trigger = c.board
	opts.Notifier = c

	dashboard, err := NewDashboard(opts)
	if err != nil {
		return nil, err
	}
	c.dashboard = dashboard

	poller, err := collector.NewPoller("refresh", cfg.RefreshInterval, c.backgroundRefresh, opts.Logger)
	if err != nil {
		return nil, err
	}
	c.poller = poller

	return c, nil
}

// Dashboard exposes the dashboard driven by this CLI
func (c *CLI) Dashboard() *Dashboard {
	return c.dashboard
}

// Board exposes the surface the dashboard renders into
func (c *CLI) Board() *storage.Board {
	return c.board
}

// Start loads the dataset list, performs the first refresh and starts the
// periodic refresh.
func (c *CLI) Start(ctx context.Context) {
	c.printf("Starting %s...\n", colorBold("SentinelForge dashboard"))

	_ = c.dashboard.LoadDatasets(ctx)
	if err := c.dashboard.Refresh(ctx); err == nil {
		c.markSeen(c.dashboard.Alerts())
	}

	c.poller.Start()
}

// Stop halts the periodic refresh
func (c *CLI) Stop() {
	c.poller.Stop()
	c.printf("Dashboard stopped\n")
}

// Notify prints a notice the user has to acknowledge by reading it. The
// command loop is blocked for the duration of the triggering command.
func (c *CLI) Notify(message string) {
	border := strings.Repeat("═", 52)
	c.printf("\n%s\n%s %s\n%s\n",
		colorBold(colorYellow("╔"+border)),
		colorYellow("║"),
		message,
		colorYellow("╚"+border))
}

// Run reads commands until the input ends, quit is entered or ctx is done.
func (c *CLI) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)

	c.printf("\nSentinelForge Dashboard Command Line Interface\n")
	c.printf("Type 'help' for available commands\n")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		c.printf("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}

		// Add to command history, avoiding duplicates
		if len(c.cmdHistory) == 0 || c.cmdHistory[len(c.cmdHistory)-1] != command {
			if len(c.cmdHistory) >= historyLimit {
				c.cmdHistory = c.cmdHistory[1:]
			}
			c.cmdHistory = append(c.cmdHistory, command)
		}

		if err := c.executeCommand(ctx, command); errors.Is(err, errQuit) {
			return nil
		}
	}
}

// backgroundRefresh is the poller task
func (c *CLI) backgroundRefresh(ctx context.Context) {
	if err := c.dashboard.Refresh(ctx); err != nil {
		return
	}
	c.announceNewAlerts(c.dashboard.Alerts())
}

// executeCommand dispatches a single command line
func (c *CLI) executeCommand(ctx context.Context, command string) error {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil
	}

	// case-insensitive command, arguments keep their case
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		c.showHelp()
	case "menu", "m":
		c.showMenu()
	case "status", "s", "1":
		c.showStatus()
	case "alerts", "a", "2":
		c.handleAlertCommand(args)
	case "logs", "l", "3":
		c.handleLogCommand(args)
	case "datasets", "d", "4":
		c.handleDatasetCommand(ctx, args)
	case "select":
		c.handleSelectCommand(args)
	case "ingest", "i", "5":
		c.handleIngestCommand(ctx, args)
	case "refresh", "r":
		c.handleRefreshCommand(ctx)
	case "clear", "cls":
		c.printf("%s", clearSequence)
		c.showMenu()
	case "history":
		c.showCommandHistory()
	case "exit", "quit", "q":
		c.printf("Goodbye\n")
		return errQuit
	default:
		c.printf("%s: Unknown command: %s\n", colorRed("Error"), parts[0])
		c.printf("Type 'help' to see available commands\n")
	}
	return nil
}

// showHelp displays available commands
func (c *CLI) showHelp() {
	c.printf("\nAvailable Commands:\n")
	c.printf("═════════════════════\n")
	c.drawPlainTable(nil, [][]string{
		{"status (s)", "Counts, summary and last refresh time"},
		{"alerts (a)", "Show the alerts table"},
		{"alerts show <id>", "Show one alert in detail"},
		{"alerts severity <level>", "Show alerts of one severity"},
		{"logs (l)", "Show the logs table"},
		{"logs show <id>", "Show one log entry in detail"},
		{"datasets (d)", "List demo datasets; 'datasets reload' refetches"},
		{"select <n|file>", "Select a dataset by number or filename"},
		{"ingest (i) [n|file]", "Ingest the selected dataset"},
		{"refresh (r)", "Refresh alerts and logs now"},
		{"menu (m)", "Show the main menu"},
		{"history", "Show command history"},
		{"clear", "Clear the screen"},
		{"quit (q)", "Exit"},
	})
}

// showMenu displays the banner, main menu and quick status
func (c *CLI) showMenu() {
	c.printf("\n%s\n", colorCyan("SentinelForge SOC :: dashboard"))
	c.printf("%s\n", colorCyan(strings.Repeat("─", 30)))

	c.printf("\n%s\n", colorBold("Main Menu:"))

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("│")
	table.SetHeaderLine(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("  ")

	table.Append([]string{colorCyan("1") + " or " + colorCyan("s"), "Status", "Counts and last refresh"})
	table.Append([]string{colorCyan("2") + " or " + colorCyan("a"), "Alerts", "Detected security alerts"})
	table.Append([]string{colorCyan("3") + " or " + colorCyan("l"), "Logs", "Latest activity records"})
	table.Append([]string{colorCyan("4") + " or " + colorCyan("d"), "Datasets", "Demo datasets on the server"})
	table.Append([]string{colorCyan("5") + " or " + colorCyan("i"), "Ingest", "Ingest the selected dataset"})
	table.Append([]string{colorCyan("refresh"), "Refresh", "Fetch alerts and logs now"})
	table.Append([]string{colorCyan("help") + " or " + colorCyan("?"), "Help", "Display help information"})
	table.Append([]string{colorCyan("quit") + " or " + colorCyan("q"), "Quit", "Exit application"})
	table.Render()
	c.write(buf.Bytes())

	c.showQuickStatus()
}

// showQuickStatus shows a condensed status overview for the main menu
func (c *CLI) showQuickStatus() {
	c.printf("\n%s\n", colorBold("Quick Status:"))
	c.printf("═════════════════════════════════════\n")
	c.printf("Uptime:       %s\n", c.getUptimeString())
	c.printf("Alerts:       %s\n", c.textOr(model.FieldAlertCount, "0"))
	c.printf("Logs:         %s\n", c.textOr(model.FieldLogCount, "0"))
	c.printf("Last refresh: %s\n", c.textOr(model.FieldLastRefresh, "never"))
}

// showStatus displays the dashboard status
func (c *CLI) showStatus() {
	enabled, label := c.board.Trigger()
	trigger := colorGreen(label)
	if !enabled {
		trigger = colorYellow(label)
	}
	selected := c.board.Selected()
	if selected == "" {
		selected = "none"
	}

	c.printf("\nDashboard Status:\n")
	c.printf("═════════════════\n")
	c.printf("Server:       %s\n", c.config.ServerURL)
	c.printf("Uptime:       %s\n", c.getUptimeString())
	c.printf("Refresh:      every %s\n", c.config.RefreshInterval)
	c.printf("Last refresh: %s\n", c.textOr(model.FieldLastRefresh, "never"))
	c.printf("Alerts:       %s\n", c.textOr(model.FieldAlertCount, "0"))
	c.printf("Logs:         %s\n", c.textOr(model.FieldLogCount, "0"))
	c.printf("Summary:      %s\n", c.textOr(model.FieldSummary, "-"))
	c.printf("Dataset:      %s\n", selected)
	c.printf("Trigger:      %s\n", trigger)
}

// handleAlertCommand processes alert-related commands
func (c *CLI) handleAlertCommand(args []string) {
	if len(args) == 0 {
		c.showAlerts(c.board.Rows(model.TableAlerts))
		return
	}

	switch args[0] {
	case "show":
		if len(args) > 1 {
			c.showAlertDetail(args[1])
		} else {
			c.printf("Usage: alerts show <alert_id>\n")
		}
	case "severity":
		if len(args) > 1 {
			c.showAlertsBySeverity(args[1])
		} else {
			c.printf("Usage: alerts severity <level>\n")
		}
	default:
		c.printf("Unknown alerts subcommand: %s\n", args[0])
	}
}

// showAlerts displays the rendered alerts table
func (c *CLI) showAlerts(rows [][]model.Cell) {
	c.printf("\nAlerts (%s):\n", c.textOr(model.FieldAlertCount, "0"))
	if len(rows) == 0 {
		c.printf("No alerts found\n")
		return
	}
	c.drawTable(alertHeader, rows)
}

// showAlertsBySeverity displays rendered alerts of one severity
func (c *CLI) showAlertsBySeverity(level string) {
	class := "severity-" + strings.ToLower(level)
	var filtered [][]model.Cell
	for _, row := range c.board.Rows(model.TableAlerts) {
		if len(row) > 0 && row[0].Class == class {
			filtered = append(filtered, row)
		}
	}

	if len(filtered) == 0 {
		c.printf("No alerts found with severity: %s\n", strings.ToUpper(level))
		return
	}
	c.drawTable(alertHeader, filtered)
}

// showAlertDetail displays one alert of the last render
func (c *CLI) showAlertDetail(id string) {
	for _, alert := range c.dashboard.Alerts() {
		if strconv.Itoa(alert.ID) != id {
			continue
		}
		sev := severityColorFunc(alert.Severity.Class())
		c.printf("\nAlert Details [%s]:\n", id)
		c.printf("═════════════════════\n")
		c.printf("Created:     %s\n", alert.CreatedAt.Display())
		c.printf("Rule:        %s\n", alert.RuleID)
		c.printf("Severity:    %s\n", sev(alert.Severity.Label()))
		c.printf("Description: %s\n", alert.Description)
		c.printf("Entities:    %s\n", alert.Entities)
		return
	}
	c.printf("Alert with ID '%s' not found\n", id)
}

// handleLogCommand processes log-related commands
func (c *CLI) handleLogCommand(args []string) {
	if len(args) == 0 {
		rows := c.board.Rows(model.TableLogs)
		c.printf("\nLogs (%s):\n", c.textOr(model.FieldLogCount, "0"))
		if len(rows) == 0 {
			c.printf("No logs found\n")
			return
		}
		c.drawTable(logHeader, rows)
		return
	}

	switch args[0] {
	case "show":
		if len(args) > 1 {
			c.showLogDetail(args[1])
		} else {
			c.printf("Usage: logs show <log_id>\n")
		}
	default:
		c.printf("Unknown logs subcommand: %s\n", args[0])
	}
}

// showLogDetail displays one log entry of the last render
func (c *CLI) showLogDetail(id string) {
	for _, entry := range c.dashboard.Logs() {
		if strconv.Itoa(entry.ID) != id {
			continue
		}
		c.printf("\nLog Details [%s]:\n", id)
		c.printf("═════════════════════\n")
		c.printf("Time:        %s\n", entry.Timestamp.Display())
		c.printf("User:        %s\n", entry.User)
		c.printf("Action:      %s\n", entry.Action)
		c.printf("Status:      %s\n", entry.Status)
		c.printf("Device:      %s\n", entry.DeviceOrPlaceholder())
		c.printf("Source IP:   %s\n", entry.SourceIP)
		if entry.Resource != "" {
			c.printf("Resource:    %s\n", entry.Resource)
		}
		if entry.BytesTransferred != 0 {
			c.printf("Bytes:       %d\n", entry.BytesTransferred)
		}
		if entry.Geo != "" {
			c.printf("Geo:         %s\n", entry.Geo)
		}
		return
	}
	c.printf("Log entry with ID '%s' not found\n", id)
}

// handleDatasetCommand lists or reloads the demo datasets
func (c *CLI) handleDatasetCommand(ctx context.Context, args []string) {
	if len(args) > 0 {
		if args[0] != "reload" {
			c.printf("Unknown datasets subcommand: %s\n", args[0])
			return
		}
		if err := c.dashboard.LoadDatasets(ctx); err != nil {
			c.printf("%s: could not load datasets: %v\n", colorYellow("Warning"), err)
		}
	}

	options := c.board.Options()
	if len(options) <= 1 {
		c.printf("No datasets available\n")
		return
	}

	selected := c.board.Selected()
	rows := make([][]string, 0, len(options)-1)
	for i, opt := range options[1:] {
		marker := ""
		if opt.Value == selected {
			marker = colorGreen("*")
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), opt.Label, opt.Value, marker})
	}

	c.printf("\n%s\n", SelectorPrompt)
	c.drawPlainTable([]string{"#", "Dataset", "File", ""}, rows)
}

// handleSelectCommand selects a dataset by list number or filename
func (c *CLI) handleSelectCommand(args []string) {
	if len(args) != 1 {
		c.printf("Usage: select <n|filename>\n")
		return
	}
	if !c.selectDataset(args[0]) {
		c.printf("Dataset '%s' not found\n", args[0])
		return
	}
	c.printf("Selected %s\n", colorHighlight(c.board.Selected()))
}

func (c *CLI) selectDataset(ref string) bool {
	options := c.board.Options()
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n < len(options) {
		return c.board.Select(options[n].Value)
	}
	if ref == "" {
		return false
	}
	return c.board.Select(ref)
}

// handleIngestCommand runs the ingestion workflow
func (c *CLI) handleIngestCommand(ctx context.Context, args []string) {
	if len(args) > 0 && !c.selectDataset(args[0]) {
		c.printf("Dataset '%s' not found\n", args[0])
		return
	}

	if selected := c.board.Selected(); selected != "" {
		c.printf("%s %s\n", colorYellow(IngestingLabel), selected)
	}
	if _, err := c.dashboard.Ingest(ctx); err == nil {
		c.markSeen(c.dashboard.Alerts())
	}
}

// handleRefreshCommand refreshes alerts and logs on demand
func (c *CLI) handleRefreshCommand(ctx context.Context) {
	if err := c.dashboard.Refresh(ctx); err != nil {
		c.printf("%s: refresh failed, showing previous data: %v\n", colorYellow("Warning"), err)
		return
	}
	c.markSeen(c.dashboard.Alerts())
	c.printf("Refreshed at %s\n", c.board.Text(model.FieldLastRefresh))
}

// showCommandHistory displays command history
func (c *CLI) showCommandHistory() {
	if len(c.cmdHistory) == 0 {
		c.printf("No command history yet\n")
		return
	}

	c.printf("\nCommand History:\n")
	c.printf("═════════════════\n")

	for i, cmd := range c.cmdHistory {
		c.printf(" %2d: %s\n", i+1, cmd)
	}
}

// announceNewAlerts prints alerts not seen by an earlier render, grouped by
// severity and rule.
func (c *CLI) announceNewAlerts(alerts []model.Alert) {
	c.seenMu.Lock()
	var fresh []model.Alert
	for _, alert := range alerts {
		key := alertKey(alert)
		if !c.seenAlerts[key] {
			fresh = append(fresh, alert)
		}
	}
	c.resetSeenLocked(alerts)
	c.seenMu.Unlock()

	if len(fresh) == 0 {
		return
	}

	type group struct {
		alert model.Alert
		count int
	}
	groups := make(map[string]*group)
	var order []string
	for _, alert := range fresh {
		key := alert.Severity.Class() + "-" + alert.RuleID
		if g, ok := groups[key]; ok {
			g.count++
			continue
		}
		groups[key] = &group{alert: alert, count: 1}
		order = append(order, key)
	}
	sort.Strings(order)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", colorBold(colorYellow("╔═ New Alerts ═════════════════════════════════════")))
	for _, key := range order {
		g := groups[key]
		sev := severityColorFunc(g.alert.Severity.Class())
		countStr := ""
		if g.count > 1 {
			countStr = fmt.Sprintf(" (%d occurrences)", g.count)
		}
		fmt.Fprintf(&b, "║ %s [%s] %s%s\n",
			sev(fmt.Sprintf("%-8s", g.alert.Severity.Label())),
			g.alert.CreatedAt.Display(),
			g.alert.RuleID,
			countStr)
	}
	fmt.Fprintf(&b, "%s\n", colorYellow("╚═════════════════════════════════════════════════════"))
	c.write([]byte(b.String()))
}

// markSeen records the alerts of a foreground render so they are not
// announced by the next background refresh.
func (c *CLI) markSeen(alerts []model.Alert) {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	c.resetSeenLocked(alerts)
}

func (c *CLI) resetSeenLocked(alerts []model.Alert) {
	c.seenAlerts = make(map[string]bool, len(alerts))
	for _, alert := range alerts {
		c.seenAlerts[alertKey(alert)] = true
	}
}

func alertKey(alert model.Alert) string {
	return strconv.Itoa(alert.ID) + "|" + alert.RuleID + "|" + alert.CreatedAt.String()
}

// drawTable renders board rows with severity cells colored by class
func (c *CLI) drawTable(header []string, rows [][]model.Cell) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader(header)
	table.SetAutoWrapText(false)

	for _, row := range rows {
		line := make([]string, len(row))
		for i, cell := range row {
			text := c.truncate(cell.Text)
			if cell.Class != "" {
				text = severityColorFunc(cell.Class)(text)
			}
			line[i] = text
		}
		table.Append(line)
	}
	table.Render()
	c.write(buf.Bytes())
}

// drawPlainTable renders plain string rows
func (c *CLI) drawPlainTable(header []string, rows [][]string) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	if header != nil {
		table.SetHeader(header)
	}
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	c.write(buf.Bytes())
}

func (c *CLI) truncate(s string) string {
	r := []rune(s)
	if len(r) <= c.config.MaxCellWidth {
		return s
	}
	return string(r[:c.config.MaxCellWidth-1]) + "…"
}

func (c *CLI) textOr(field, fallback string) string {
	if v := c.board.Text(field); v != "" {
		return v
	}
	return fallback
}

// getUptimeString formats the dashboard uptime
func (c *CLI) getUptimeString() string {
	uptime := time.Since(c.startTime)
	days := int(uptime.Hours() / 24)
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func (c *CLI) printf(format string, args ...interface{}) {
	c.write([]byte(fmt.Sprintf(format, args...)))
}

func (c *CLI) write(p []byte) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if _, err := c.out.Write(p); err != nil {
		c.logger.Debug("failed to write to terminal", zap.Error(err))
	}
}
