// Command greenhouse-controller ingests readings from the greenhouse controller,
// evaluates triggers, drives the actuators and serves the HTTP API.
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

	"github.com/sweeney/greenhouse-controller/internal/cache"
	"github.com/sweeney/greenhouse-controller/internal/config"
	"github.com/sweeney/greenhouse-controller/internal/control"
	"github.com/sweeney/greenhouse-controller/internal/engine"
	"github.com/sweeney/greenhouse-controller/internal/gpio"
	"github.com/sweeney/greenhouse-controller/internal/greenhouse"
	"github.com/sweeney/greenhouse-controller/internal/history"
	"github.com/sweeney/greenhouse-controller/internal/ingest"
	"github.com/sweeney/greenhouse-controller/internal/logger"
	"github.com/sweeney/greenhouse-controller/internal/metrics"
	"github.com/sweeney/greenhouse-controller/internal/mqtt"
	"github.com/sweeney/greenhouse-controller/internal/serial"
	"github.com/sweeney/greenhouse-controller/internal/status"
	"github.com/sweeney/greenhouse-controller/internal/store"
	"github.com/sweeney/greenhouse-controller/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	if cfg.Diagnose {
		if err := serial.Diagnose(os.Stdout, cfg.SerialConfig(), serial.OpenReal, serial.Candidates()); err != nil {
			os.Exit(1)
		}
		return
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		SerialPort:  cfg.SerialPort,
		BaudRate:    cfg.BaudRate,
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPPort:    cfg.HTTPAddr,
		Store:       st.kind,
		Cache:       st.cache,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Transport. A failed open leaves the daemon running without live readings.
	ch := serial.NewChannel(cfg.SerialConfig(), serial.OpenReal, log)
	if err := ch.Open(); err != nil {
		fields := []zap.Field{zap.Error(err)}
		var ce *serial.ConnectError
		if errors.As(err, &ce) {
			fields = append(fields, zap.String("kind", string(ce.Kind)), zap.String("hint", ce.Hint()))
		}
		log.Error("controller unavailable, running without live readings", fields...)
	}
	defer ch.Close()
	tracker.SetTransportConnected(ch.IsOpen())
	if ch.IsOpen() {
		metrics.TransportConnected.Set(1)
	}

	// MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		rp := mqtt.NewRealPublisher(cfg.Broker, log)
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	// Trigger engine and its observers
	eng := engine.New(st.readings, st.log, log)
	eng.OnEdge(tracker)
	edges := mqtt.NewEdgeForwarder(publisher, log)
	defer edges.Close()
	eng.OnEdge(edges)
	eng.OnEvaluate(tracker.SetTriggers)
	if alert := openAlert(cfg.LEDPin, log); alert != nil {
		defer alert.Close()
		eng.OnEvaluate(alert.Update)
	}

	svc := greenhouse.New(st.readings, eng,
		control.NewReconciler(ch, log),
		history.NewAggregator(st.readings, st.log),
		tracker, log)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn("failed to publish startup event", zap.Error(err))
	}

	// Bring the actuators in line with the stored state before serving requests.
	if ch.IsOpen() {
		if res, err := svc.ResetDevices(ctx); err != nil {
			log.Error("startup reconcile failed", zap.Error(err))
		} else {
			log.Info("startup reconcile applied",
				zap.Int("fan_speed", res.FanSpeed),
				zap.Bool("valve_open", res.ValveOpen))
		}
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, svc, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
	}

	log.Info("started",
		zap.String("port", cfg.SerialPort),
		zap.Duration("poll", cfg.Poll),
		zap.String("broker", cfg.Broker),
		zap.Duration("heartbeat", cfg.Heartbeat),
		zap.String("store", st.kind))

	loop := ingest.New(ch, st.readings, tracker, publisher, log)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctx, loop, publisher, mqttStatus, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh, log)
}

// runLoop drives ingestion and heartbeats until a signal arrives, then
// publishes SHUTDOWN. Request handling runs on the HTTP server's goroutines.
func runLoop(ctx context.Context, loop *ingest.Loop, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, log *zap.Logger) error {
	lastHeartbeat := now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s := <-sig:
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			log.Info("shutting down", zap.String("signal", signalName))

			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn("failed to publish shutdown event", zap.Error(err))
			}
			return nil

		case <-tick:
			loop.Tick(ctx)

			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			t := now()
			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t

			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			log.Info("heartbeat",
				zap.Duration("uptime", snap.Uptime().Truncate(time.Second)),
				zap.Int("readings", snap.Counts.Readings),
				zap.Int("parse_failures", snap.Counts.ParseFailures),
				zap.Int("edges", snap.Counts.Edges))

			hbEvent := mqtt.SystemEvent{
				Timestamp:  t,
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Warn("heartbeat publish error", zap.Error(err))
			}
		}
	}
}

// stores holds the configured reading store and trigger log.
type stores struct {
	readings store.ReadingStore
	log      store.TriggerLog
	kind     string
	cache    string
	closers  []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores opens PostgreSQL when a DSN is configured and the in-memory store
// otherwise. An unreachable Redis disables the cache rather than failing startup.
func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, error) {
	st := &stores{kind: cfg.StoreKind()}

	if cfg.DatabaseURL != "" {
		db, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgres(db, log)
		if err := pg.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		st.readings, st.log = pg, pg
		st.closers = append(st.closers, db.Close)
	} else {
		mem := store.NewMemory()
		st.readings, st.log = mem, mem
	}

	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis unavailable, latest-reading cache disabled",
				zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			st.readings = cache.NewLatestCache(st.readings, cache.NewRedisKVStore(client), log)
			st.cache = cfg.RedisAddr
			st.closers = append(st.closers, client.Close)
		}
	}
	return st, nil
}

// openAlert returns nil when the LED is disabled or its line cannot be requested.
func openAlert(pin int, log *zap.Logger) *gpio.Alert {
	if pin < 0 {
		return nil
	}
	out, err := gpio.NewRealOutput(pin)
	if err != nil {
		log.Warn("alert LED unavailable", zap.Int("pin", pin), zap.Error(err))
		return nil
	}
	return gpio.NewAlert(out, log)
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
