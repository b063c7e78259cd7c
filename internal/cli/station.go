package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/intake/internal/catalog"
	"github.com/roach88/intake/internal/receiving"
	"github.com/roach88/intake/internal/scanner"
	"github.com/roach88/intake/internal/station"
)

// StationOptions holds flags for the station command.
type StationOptions struct {
	*RootOptions
	Scanner string
	NoScan  bool
}

// NewStationCommand creates the interactive station command.
func NewStationCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "station",
		Short: "Run the interactive receiving station",
		Long: `Run the receiving station interactively.

Each input line is handled in order by the station's event loop:

  <text>         exact lookup by code or name; opens the receive prompt
  ?<text>        search the catalog and list the matches
  <qty>          answer the open prompt (an empty line dismisses it)
  :pick N        open the receive prompt for search result N
  :edit KEY      edit the quantity of a ledger entry
  :x             cancel the open prompt
  :cancel KEY    mark a ledger entry cancelled
  :delete KEY    remove a ledger entry (authorized session)
  :clear         remove every ledger entry (authorized session)
  :auth PASS     authorize the session
  :revoke        end the authorized session
  :filter on|off only list rows with a secondary code
  :scan          start or stop the attached scanner
  :load [PATH]   load a catalog file (default: the configured one)
  :list          show the ledger
  :quit          leave (:quit! leaves with unexported receipts)

Example:
  intake station
  intake station --scanner /dev/hidraw0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStation(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scanner, "scanner", "", "scanner device path (default: scan.device from config)")
	cmd.Flags().BoolVar(&opts.NoScan, "no-scan", false, "do not start the scanner at startup")

	return cmd
}

func runStation(opts *StationOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	device := opts.Scanner
	if device == "" {
		device = cfg.Scan.Device
	}
	var extra []station.Option
	if device != "" && device != "-" {
		extra = append(extra, station.WithScanner(scanner.NewDeviceSource(device)))
	}

	a, err := openApp(cmd, opts.RootOptions, extra...)
	if err != nil {
		return err
	}
	defer a.Close()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if a.station.Index().Len() == 0 && a.cfg.Catalog.Path != "" {
		if err := a.station.LoadConfiguredCatalog(ctx); err != nil {
			a.logger.Debug("no catalog loaded at startup", "error", err)
		}
	}

	in := cmd.InOrStdin()
	c := newConsole(a, cmd.OutOrStdout(), isInteractive(in))
	defer c.unsubscribe()

	done := make(chan error, 1)
	go func() { done <- a.station.Run(ctx) }()

	if device != "" && device != "-" && !opts.NoScan {
		if err := a.station.StartScanner(ctx); err != nil {
			a.logger.Warn("scanner not started", "device", device, "error", err)
		}
	}

	a.logger.Info("station started", "db", a.cfg.Store.Path, "catalog_rows", a.station.Index().DataLen())
	fmt.Fprintln(c.w, "Station ready. Type :quit to leave.")

	c.loop(ctx, in)

	if err := a.station.StopScanner(); err != nil {
		a.logger.Warn("failed to stop scanner", "error", err)
	}
	a.station.Stop()
	if err := <-done; err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return WrapExitError(ExitFailure, "station error", err)
	}

	a.logger.Info("station stopped")
	return nil
}

// isInteractive reports whether r is a terminal.
func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// console reads operator lines and turns them into station events. Output
// is written by the station subscriber, which runs on the event loop.
type console struct {
	a           *app
	w           io.Writer
	interactive bool
	unsubscribe func()

	mu         sync.Mutex
	promptOpen atomic.Bool
	pending    atomic.Bool
	ledgerView string
}

func newConsole(a *app, w io.Writer, interactive bool) *console {
	c := &console{a: a, w: w, interactive: interactive}
	c.pending.Store(a.ledger.HasPendingReceipts())
	c.ledgerView = renderEntries(a.ledger.List(true))
	c.unsubscribe = a.station.Subscribe(c.onUpdate)
	return c
}

func (c *console) onUpdate(u station.Update) {
	switch u.Kind {
	case station.UpdateResults:
		if len(u.Results) == 0 {
			fmt.Fprintln(c.w, "no matches")
			return
		}
		fmt.Fprintln(c.w, renderHits(searchHits(c.a, u.Results)))
	case station.UpdatePrompt:
		p := u.Transition.To
		c.promptOpen.Store(p.State != receiving.Closed)
		if u.Transition.Reason == receiving.ReasonOpened {
			fmt.Fprintln(c.w, promptLine(p))
		}
	case station.UpdateLedger:
		c.pending.Store(c.a.ledger.HasPendingReceipts())
		view := renderEntries(c.a.ledger.List(true))
		c.mu.Lock()
		c.ledgerView = view
		c.mu.Unlock()
	case station.UpdateCatalog:
		fmt.Fprintf(c.w, "catalog: %d rows\n", c.a.station.Index().DataLen())
	}
}

func promptLine(p receiving.Prompt) string {
	name := p.Row.Name
	if name == "" {
		name = p.Key.String()
	}
	verb := "Receive"
	if p.State == receiving.OpenForEdit {
		verb = "Edit"
	}
	if p.Prefill != "" {
		return fmt.Sprintf("%s %s (%s) qty [%s]:", verb, name, p.Key, p.Prefill)
	}
	return fmt.Sprintf("%s %s (%s) qty:", verb, name, p.Key)
}

func (c *console) loop(ctx context.Context, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if c.interactive {
			fmt.Fprint(c.w, "> ")
		}
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				if c.pending.Load() {
					c.a.out.Notice(pendingNotice())
				}
				return
			}
			if c.handle(ctx, line) {
				return
			}
		}
	}
}

// handle processes one input line and reports whether the console should
// exit.
func (c *console) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, ":") {
		return c.command(ctx, line[1:])
	}
	switch {
	case c.promptOpen.Load() && line == "":
		c.send(ctx, station.Event{Type: station.EventDismissPrompt})
	case c.promptOpen.Load():
		c.send(ctx, station.Event{Type: station.EventConfirm, Text: line})
	case line == "":
	case strings.HasPrefix(line, "?"):
		c.send(ctx, station.Event{Type: station.EventQuery, Text: line[1:]})
	default:
		c.send(ctx, station.Event{Type: station.EventSubmit, Text: line})
	}
	return false
}

func (c *console) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "q":
		if c.pending.Load() {
			c.a.out.Notice(pendingNotice())
			fmt.Fprintln(c.w, "use :quit! to leave anyway")
			return false
		}
		return true
	case "quit!", "q!":
		return true
	case "pick":
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(c.w, "usage: :pick N")
			return false
		}
		c.send(ctx, station.Event{Type: station.EventPick, Index: n - 1})
	case "edit", "cancel", "delete":
		if arg == "" {
			fmt.Fprintf(c.w, "usage: :%s KEY\n", name)
			return false
		}
		types := map[string]station.EventType{
			"edit":   station.EventEdit,
			"cancel": station.EventCancelEntry,
			"delete": station.EventDelete,
		}
		c.send(ctx, station.Event{Type: types[name], Key: catalog.Key(arg)})
	case "x":
		c.send(ctx, station.Event{Type: station.EventCancelPrompt})
	case "clear":
		c.send(ctx, station.Event{Type: station.EventClear})
	case "auth":
		c.send(ctx, station.Event{Type: station.EventAuthorize, Text: arg})
	case "revoke":
		c.send(ctx, station.Event{Type: station.EventRevoke})
		fmt.Fprintln(c.w, "session revoked")
	case "filter":
		switch arg {
		case "on", "off":
			c.send(ctx, station.Event{Type: station.EventFilter, Flag: arg == "on"})
		default:
			fmt.Fprintln(c.w, "usage: :filter on|off")
		}
	case "scan":
		c.toggleScanner(ctx)
	case "load":
		c.send(ctx, station.Event{Type: station.EventLoadCatalog, Text: arg})
	case "list":
		c.mu.Lock()
		view := c.ledgerView
		c.mu.Unlock()
		fmt.Fprintln(c.w, view)
	case "help":
		fmt.Fprintln(c.w, "commands: :pick :edit :x :cancel :delete :clear :auth :revoke :filter :scan :load :list :quit")
	default:
		fmt.Fprintf(c.w, "unknown command :%s\n", name)
	}
	return false
}

// send enqueues ev and waits until the loop has handled it, so the next line
// sees the prompt state it produced.
func (c *console) send(ctx context.Context, ev station.Event) {
	reply := make(chan error, 1)
	ev.Reply = reply
	if !c.a.station.Enqueue(ev) {
		return
	}
	select {
	case err := <-reply:
		if err != nil {
			c.a.logger.Debug("event failed", "event", ev.Type.String(), "error", err)
		}
	case <-ctx.Done():
	}
}

func (c *console) toggleScanner(ctx context.Context) {
	if c.a.station.ScannerRunning() {
		if err := c.a.station.StopScanner(); err != nil {
			fmt.Fprintf(c.w, "scanner: %v\n", err)
			return
		}
		fmt.Fprintln(c.w, "scanner stopped")
		return
	}
	if err := c.a.station.StartScanner(ctx); err != nil {
		fmt.Fprintf(c.w, "scanner: %v\n", err)
		return
	}
	fmt.Fprintln(c.w, "scanner started")
}

func pendingNotice() station.Notice {
	return station.Notice{Level: station.LevelWarn, Code: station.NoticePending,
		Message: "the ledger has received items that have not been exported"}
}
