package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/christopherklint97/bookr/internal/booking"
	"github.com/christopherklint97/bookr/internal/config"
	"github.com/christopherklint97/bookr/internal/extract"
	"github.com/christopherklint97/bookr/internal/notify"
	"github.com/christopherklint97/bookr/internal/server"
	"github.com/christopherklint97/bookr/internal/session"
	"github.com/christopherklint97/bookr/internal/store"
	"github.com/christopherklint97/bookr/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "bookr",
	Short: "Conversational meeting booking assistant",
	Long:  "bookr books meetings through a short conversation: it asks for a date and time, offers free slots from your calendar, and creates the event once you confirm.",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Book a meeting in the terminal",
	RunE:  runChat,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the booking assistant over HTTP",
	RunE:  runServe,
}

var slotsCmd = &cobra.Command{
	Use:   "slots [when]",
	Short: "Show free slots, e.g. 'bookr slots tomorrow at 2pm'",
	RunE:  runSlots,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent bookings",
	RunE:  runHistory,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Manage the calendar connection",
}

var calendarAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in to Microsoft Graph with a device code",
	RunE:  runCalendarAuth,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	RunE:  runConfig,
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (overrides server.listen)")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of bookings to show")

	calendarCmd.AddCommand(calendarAuthCmd)

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// fileLogger writes to ~/.config/bookr/bookr.log so log lines don't tear
// the TUI.
func fileLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, nil, fmt.Errorf("creating config directory: %w", err)
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "bookr.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))
	return logger, func() { f.Close() }, nil
}

func stderrLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)}))
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := fileLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	rt, err := newServices(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	app := tui.NewApp(rt.engine, notify.New(cfg.Notifications.Enabled, logger), rt.backend)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	if n := len(app.GetResult().Booked); n > 0 {
		fmt.Printf("Booked %d meeting(s) this session.\n", n)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	rt, err := newServices(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := session.New(ctx, session.Config{
		Kind:        session.Kind(cfg.Sessions.Store),
		MaxSessions: cfg.Sessions.MaxSessions,
		RedisAddr:   cfg.Sessions.RedisAddr,
		RedisDB:     cfg.Sessions.RedisDB,
		Password:    os.Getenv("BOOKR_REDIS_PASSWORD"),
		TTL:         cfg.SessionTTL(),
	})
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer sessions.Close()

	srv := server.New(rt.engine, sessions, server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Notifier:       notify.New(cfg.Notifications.Enabled, logger),
		Logger:         logger,
	})

	addr, _ := cmd.Flags().GetString("listen")
	if addr == "" {
		addr = cfg.Server.Listen
	}
	logger.Info("starting bookr", "calendar", rt.backend, "sessions", cfg.Sessions.Store)
	return srv.Run(ctx, addr)
}

func runSlots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newServices(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer rt.Close()

	loc := rt.engine.Location()
	now := time.Now().In(loc)
	date, timeOfDay := extract.DateTime(strings.Join(args, " "), now)
	if date == "" {
		date = now.Format(booking.DateLayout)
	}

	start, end, err := booking.DayBounds(date, loc)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slots, err := rt.engine.Backend().Availability(ctx, start, end)
	if err != nil {
		return fmt.Errorf("checking availability: %w", err)
	}
	slots = booking.FilterByDuration(slots, cfg.Assistant.DurationMinutes)

	fmt.Printf("%s (%s calendar)\n\n", booking.FormatDate(date), rt.backend)
	if len(slots) == 0 {
		fmt.Println("No free slots.")
		return nil
	}
	if hour, ok := extract.Hour24(timeOfDay); ok {
		slots = booking.RankSlots(slots, hour, true, len(slots), loc)
		fmt.Printf("Closest to %s first:\n", timeOfDay)
	}
	fmt.Println(booking.FormatCatalog(slots, loc))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	records, err := db.RecentBookings(limit)
	if err != nil {
		return fmt.Errorf("fetching bookings: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No bookings yet.")
		return nil
	}

	fmt.Println("Recent bookings:")
	fmt.Println()
	for _, r := range records {
		start := r.StartTime.Local()
		attendee := r.AttendeeEmail
		if attendee == "" {
			attendee = "-"
		}
		fmt.Printf("  %s  %s-%s  %-24s  %-24s  [%s]\n",
			start.Format("Mon Jan 02"),
			start.Format("15:04"),
			r.EndTime.Local().Format("15:04"),
			r.Title,
			attendee,
			r.Backend,
		)
	}
	return nil
}

func runCalendarAuth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	auth, err := newGraphAuth(cfg, logger)
	if err != nil {
		return err
	}
	if auth == nil {
		return fmt.Errorf("no Graph client id configured: set calendar.graph.client_id or MSGRAPH_CLIENT_ID")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dc, err := auth.StartDeviceCodeFlow(ctx)
	if err != nil {
		return err
	}
	if dc.Message != "" {
		fmt.Println(dc.Message)
	} else {
		fmt.Printf("Open %s and enter the code %s\n", dc.VerificationURI, dc.UserCode)
	}

	expires := time.Duration(dc.ExpiresIn) * time.Second
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, expires)
	defer cancel()
	if _, err := auth.PollForToken(ctx, dc.DeviceCode, dc.Interval); err != nil {
		return fmt.Errorf("waiting for sign-in: %w", err)
	}

	fmt.Println("Signed in. Set calendar.source = \"graph\" to book against Outlook.")
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("creating config: %w", err)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	if path, err := exec.LookPath(editor); err == nil {
		editor = path
	}

	fmt.Printf("Opening %s with %s...\n", configPath, editor)

	proc := os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
	process, err := os.StartProcess(editor, []string{editor, configPath}, &proc)
	if err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", configPath)
		return nil
	}
	_, err = process.Wait()
	return err
}
