// Command water-sensor samples an analog water-level sensor, drives local
// indicators and reports level changes to a document store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/water-sensor/internal/adc"
	"github.com/sweeney/water-sensor/internal/clock"
	"github.com/sweeney/water-sensor/internal/config"
	"github.com/sweeney/water-sensor/internal/display"
	"github.com/sweeney/water-sensor/internal/gpio"
	"github.com/sweeney/water-sensor/internal/indicator"
	"github.com/sweeney/water-sensor/internal/logging"
	"github.com/sweeney/water-sensor/internal/mqtt"
	"github.com/sweeney/water-sensor/internal/network"
	"github.com/sweeney/water-sensor/internal/report"
	"github.com/sweeney/water-sensor/internal/retry"
	"github.com/sweeney/water-sensor/internal/status"
	"github.com/sweeney/water-sensor/internal/store"
	"github.com/sweeney/water-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default $"+config.EnvPath+")")
	printState := flag.Bool("print-state", false, "Print current reading and exit")

	flag.Parse()

	if err := run(*configPath, *printState); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, printState bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// Initialize ADC
	sensor, err := adc.NewIIOReader(cfg.ADCPath())
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer sensor.Close()

	// Print state mode
	if printState {
		raw, err := sensor.Read()
		if err != nil {
			return fmt.Errorf("read adc: %w", err)
		}
		fmt.Printf("raw: %d, level: %s\n", raw, cfg.Thresholds().Classify(raw))
		return nil
	}

	// Initialize GPIO outputs and display
	outputs, err := gpio.NewRealOutputs(cfg.GPIO.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer outputs.Close()

	var disp display.Display
	if !cfg.Display.Disabled {
		lcd, err := display.OpenHD44780(cfg.GPIO.Chip, cfg.DisplayPins())
		if err != nil {
			return fmt.Errorf("init display: %w", err)
		}
		defer lcd.Close()
		disp = lcd
	}
	driver := indicator.NewDriver(outputs, disp, cfg.GPIO.Pulse, log.Named("indicator"))

	// Startup is interruptible until the poll loop takes over signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy := cfg.StartupPolicy()

	// Network and identity
	monitor := network.NewMonitor(cfg.Network.Interface, log.Named("network"))
	attempts, err := monitor.WaitConnected(ctx, withRetryLog(policy, log, "network"))
	if err != nil {
		return fmt.Errorf("wait for network: %w", err)
	}
	log.Info("network connected", zap.Int("attempts", attempts), zap.String("ip", monitor.LocalIP()))

	deviceID := cfg.DeviceID
	if deviceID == "" {
		if deviceID, err = monitor.DeviceID(); err != nil {
			return fmt.Errorf("device id: %w", err)
		}
	}

	// Clock: first sync now, later attempts on heartbeat
	ntpClock := clock.NewNTPClock(cfg.Clock.Server, cfg.Clock.Timeout, log.Named("clock"))
	if err := ntpClock.Sync(ctx); err != nil {
		log.Warn("initial clock sync failed, will retry on heartbeat", zap.Error(err))
	}

	// Store
	backend, err := openStore(cfg, log.Named("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer backend.Close()

	attempts, err = withRetryLog(policy, log, "store").Do(ctx, backend.Authenticate)
	if err != nil {
		return fmt.Errorf("authenticate store: %w", err)
	}
	log.Info("store ready", zap.String("backend", cfg.Store.Backend), zap.Int("attempts", attempts))

	st := store.WithTimeout(backend, cfg.Store.Timeout)
	reporter := report.New(st, deviceID, cfg.UnsyncedPolicy(), log.Named("report"))

	// MQTT event mirror (optional)
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, log.Named("mqtt"))
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		publisher, mqttStatus = pub, pub
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), deviceID, status.Config{
		PollMs:          cfg.Poll.Milliseconds(),
		HeartbeatMs:     cfg.Heartbeat.Milliseconds(),
		ThresholdMedium: cfg.Levels.Medium,
		ThresholdHigh:   cfg.Levels.High,
		Confirm:         cfg.Levels.Confirm,
		StoreBackend:    cfg.Store.Backend,
		Unsynced:        cfg.Report.Unsynced,
		Broker:          cfg.MQTT.Broker,
		HTTPPort:        cfg.HTTP.Addr,
	})
	tracker.SetConnectivity(true, backend.Ready(), ntpClock.Synced())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	if host, err := status.ReadHostInfo(); err == nil {
		tracker.SetHost(host)
	}

	// Publish startup event with full status snapshot
	if publisher != nil {
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Warn("failed to publish startup event", zap.Error(err))
		} else {
			log.Info("published startup event")
		}
	}

	// Start HTTP status server
	var hub *web.Hub
	if cfg.HTTP.Enabled() {
		hubCtx, cancelHub := context.WithCancel(context.Background())
		defer cancelHub()
		hub = web.NewHub(log.Named("ws"))
		go hub.Run(hubCtx)

		srv := web.New(cfg.HTTP.Addr, tracker, hub, log.Named("http"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", zap.String("addr", cfg.HTTP.Addr))
	}

	log.Info("started",
		zap.String("device_id", deviceID),
		zap.Duration("poll", cfg.Poll),
		zap.Duration("heartbeat", cfg.Heartbeat),
		zap.Int("medium", cfg.Levels.Medium),
		zap.Int("high", cfg.Levels.High),
		zap.Int("confirm", cfg.Levels.Confirm),
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stop()

	l := &loop{
		sensor:     sensor,
		driver:     driver,
		network:    monitor,
		store:      st,
		clock:      ntpClock,
		resync:     ntpClock.Sync,
		reporter:   reporter,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		hostInfo:   status.ReadHostInfo,
		thresholds: cfg.Thresholds(),
		confirm:    cfg.Levels.Confirm,
		heartbeat:  cfg.Heartbeat,
		log:        log,
	}
	if hub != nil {
		l.live = hub
	}
	return l.run(time.Now, ticker.C, sigCh)
}

// openStore builds the configured backend. It is not yet authenticated.
func openStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendFirestore:
		return store.NewFirestore(cfg.FirestoreStore(), log), nil
	case config.BackendRedis:
		return store.NewRedis(cfg.RedisStore(), log), nil
	case config.BackendPostgres:
		return store.NewPostgres(cfg.Store.Postgres.URL, log), nil
	case config.BackendSQLite:
		db, err := store.NewSQLite(cfg.Store.SQLite.Path, log)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// withRetryLog returns p with an OnRetry hook that logs each failed attempt.
func withRetryLog(p retry.Policy, log *zap.Logger, what string) retry.Policy {
	p.OnRetry = func(attempt int, err error, next time.Duration) {
		log.Warn("startup step failed, retrying",
			zap.String("step", what),
			zap.Int("attempt", attempt),
			zap.Duration("next", next),
			zap.Error(err),
		)
	}
	return p
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
