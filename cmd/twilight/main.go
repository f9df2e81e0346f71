package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vherrmann/twilight/internal/config"
	"github.com/vherrmann/twilight/pkg/logger"
	"github.com/vherrmann/twilight/pkg/schedule"
	"github.com/vherrmann/twilight/pkg/scheduler"
	"github.com/vherrmann/twilight/pkg/solar"
)

var (
	cfgFile   string
	latitude  float64
	longitude float64
	timezone  string
)

// rootCmd runs the scheduler until signalled
var rootCmd = &cobra.Command{
	Use:   "twilight",
	Short: "Day-phase callback scheduler",
	Long: `twilight activates one of several configured commands depending on the
current time of day. Schedule times are fixed clock times ("HH:MM",
"HH:MM:SS") or solar markers ("sunrise", "sunset") resolved daily for the
configured location. After each activation it schedules itself exactly once
for the next transition, producing a perpetual daily cycle with no polling.`,
}

// previewCmd resolves today's schedule without arming any timer
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print today's resolved schedule",
	Long: `Resolve every configured entry for today and print its time of day and
offset from now, marking the currently active entry and the next
transition. No commands are run and no timers are armed.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPreview(); err != nil {
			log.Fatalf("preview failed: %v", err)
		}
	},
}

func init() {
	cobra.OnInitialize(initEnv)

	// assigned here rather than in the composite literal to avoid an
	// initialization cycle (runScheduler -> loadConfig -> rootCmd)
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if err := runScheduler(); err != nil {
			log.Fatalf("twilight failed: %v", err)
		}
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default searches ., ~/.config/twilight, /etc/twilight)")
	rootCmd.PersistentFlags().Float64Var(&latitude, "latitude", 0, "latitude for solar markers (overrides config)")
	rootCmd.PersistentFlags().Float64Var(&longitude, "longitude", 0, "longitude for solar markers (overrides config)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA timezone (overrides config)")

	rootCmd.AddCommand(previewCmd)
}

// initEnv loads a .env file when present so TWILIGHT_* overrides work
// without exporting them.
func initEnv() {
	_ = godotenv.Load()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if f := rootCmd.PersistentFlags().Lookup("latitude"); f != nil && f.Changed {
		cfg.Location.Latitude = latitude
	}
	if f := rootCmd.PersistentFlags().Lookup("longitude"); f != nil && f.Changed {
		cfg.Location.Longitude = longitude
	}
	if f := rootCmd.PersistentFlags().Lookup("timezone"); f != nil && f.Changed {
		cfg.Location.Timezone = timezone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runScheduler() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	loc, err := cfg.TimeLocation()
	if err != nil {
		return err
	}

	appLogger := logger.DefaultLogger.Scope(logger.LogScope{Label: "twilight"})
	table, err := cfg.Table(appLogger)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Config{
		Table:         func() []schedule.Entry { return table },
		Place:         cfg.Place(),
		Location:      loc,
		FallbackDelay: cfg.FallbackDelay(),
		Logger:        appLogger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	appLogger.Info("Scheduler running", logger.LogMeta{
		"entries":  len(table),
		"timezone": loc.String(),
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	appLogger.Info("Shutting down", logger.LogMeta{"signal": sig.String()})
	sched.Stop()
	return nil
}

func runPreview() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	loc, err := cfg.TimeLocation()
	if err != nil {
		return err
	}

	appLogger := logger.DefaultLogger.Scope(logger.LogScope{Label: "preview"})
	table, err := cfg.Table(appLogger)
	if err != nil {
		return err
	}

	now := time.Now().In(loc)
	nowSec := now.Hour()*3600 + now.Minute()*60 + now.Second()

	var day *solar.Day
	if d, derr := (solar.Compute{}).EventsFor(now, cfg.Place()); derr != nil {
		fmt.Printf("warning: %v\n", derr)
	} else {
		day = &d
	}

	offsets, errs := schedule.Build(table, nowSec, day)
	for _, ee := range errs {
		fmt.Printf("unresolvable: %s (%v)\n", ee.Entry.Label, ee.Err)
	}

	activeIdx, ok := schedule.SelectActiveIndex(offsets)
	if !ok {
		fmt.Println("no usable entries today")
		return nil
	}
	delay, _ := schedule.NextDelay(offsets)

	fmt.Printf("now: %s (%s)\n\n", now.Format("15:04:05"), loc)
	for i, oe := range offsets {
		sec := oe.Offset + nowSec
		marker := " "
		if i == activeIdx {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s  at %02d:%02d:%02d  offset %+ds\n",
			marker, oe.Entry.Label, oe.Entry.Spec,
			sec/3600, sec%3600/60, sec%60, oe.Offset)
	}
	fmt.Printf("\nnext transition in %s\n", delay)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
