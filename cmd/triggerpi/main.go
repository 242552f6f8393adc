// Command triggerpi debounces amplifier trigger inputs and switches relays
// once the amplifier has finished its power-up sequence.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/triggerpi/internal/config"
	"github.com/sweeney/triggerpi/internal/gpio"
	"github.com/sweeney/triggerpi/internal/metrics"
	"github.com/sweeney/triggerpi/internal/mqtt"
	"github.com/sweeney/triggerpi/internal/status"
	"github.com/sweeney/triggerpi/internal/web"
)

var (
	configPath string
	envFile    string

	mainCmd = &cobra.Command{
		Use:          "triggerpi",
		Short:        "Amplifier trigger debouncer",
		SilenceUsage: true,
		RunE:         runDaemon,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the trigger monitor (default)",
		RunE:  runDaemon,
	}
	printStateCmd = &cobra.Command{
		Use:   "print-state",
		Short: "Read the inputs once and print the state the monitor would start in",
		RunE:  runPrintState,
	}
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	mainCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config path. Missing file means defaults")
	mainCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "pi-helper env file with network info")
	mainCmd.AddCommand(runCmd, printStateCmd)
	if err := mainCmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	lvl, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(lvl)
	return cfg, nil
}

func runPrintState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reader, err := gpio.NewInputReader(cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	return printState(cmd.OutOrStdout(), reader, cfg)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	board, err := gpio.NewRealBoard(cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	publisher := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), cfg.StatusConfig())
	network := func() *status.NetworkInfo { return config.ReadNetworkEnv(envFile) }
	if net := network(); net != nil {
		tracker.SetNetwork(net)
	}
	rec := metrics.New()

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, rec)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.HTTPAddr)
	}

	l := &loop{
		board:      board,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    rec,
		network:    network,
		params:     cfg.Params(),
		channels:   len(cfg.InputPins),
		stagger:    cfg.RelayStagger.Duration,
		heartbeat:  cfg.Heartbeat.Duration,
		now:        time.Now,
		sleep:      time.Sleep,
	}
	if err := l.start(); err != nil {
		return err
	}
	log.Infof("started: poll=%v poweron_hold=%v armed_hold=%v broker=%s heartbeat=%v",
		cfg.PollInterval, cfg.PowerOnHold, cfg.ArmedHold, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.PollInterval.Duration)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return l.run(ticker.C, sigCh)
}
