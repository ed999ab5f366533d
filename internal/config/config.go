// Package config loads daemon settings from flags, with GREENHOUSE_* environment
// variables supplying the defaults.
package config

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/gpio"
	"github.com/sweeney/greenhouse-controller/internal/serial"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "GREENHOUSE_"

// Config holds every daemon setting.
type Config struct {
	SerialPort  string
	BaudRate    int
	ReadTimeout time.Duration
	Poll        time.Duration
	HTTPAddr    string
	Broker      string
	Heartbeat   time.Duration
	DatabaseURL string
	RedisAddr   string
	LEDPin      int
	LogLevel    string
	LogFormat   string
	Diagnose    bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		SerialPort:  serial.DefaultAddress,
		BaudRate:    serial.DefaultBaudRate,
		ReadTimeout: serial.DefaultReadTimeout,
		Poll:        100 * time.Millisecond,
		HTTPAddr:    ":8080",
		Heartbeat:   15 * time.Minute,
		LEDPin:      gpio.DefaultLEDPin,
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// env reads environment defaults and remembers the first malformed value.
type env struct {
	getenv func(string) string
	err    error
}

func (e *env) fail(name string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
}

func (e *env) string(name, def string) string {
	if v := e.getenv(EnvPrefix + name); v != "" {
		return v
	}
	return def
}

func (e *env) int(name string, def int) int {
	v := e.getenv(EnvPrefix + name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, err)
		return def
	}
	return n
}

func (e *env) duration(name string, def time.Duration) time.Duration {
	v := e.getenv(EnvPrefix + name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, err)
		return def
	}
	return d
}

func (e *env) bool(name string, def bool) bool {
	v := e.getenv(EnvPrefix + name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, err)
		return def
	}
	return b
}

// Load parses args (without the program name). Flags override environment
// variables, which override the defaults.
func Load(args []string, getenv func(string) string) (Config, error) {
	d := Default()
	e := &env{getenv: getenv}

	fs := flag.NewFlagSet("greenhouse-controller", flag.ContinueOnError)
	var c Config
	fs.StringVar(&c.SerialPort, "port", e.string("PORT", d.SerialPort), "Serial device of the controller")
	fs.IntVar(&c.BaudRate, "baud", e.int("BAUD", d.BaudRate), "Serial baud rate")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", e.duration("READ_TIMEOUT", d.ReadTimeout), "Serial read timeout")
	fs.DurationVar(&c.Poll, "poll", e.duration("POLL", d.Poll), "Ingestion polling interval")
	fs.StringVar(&c.HTTPAddr, "http", e.string("HTTP", d.HTTPAddr), "HTTP API address (empty to disable)")
	fs.StringVar(&c.Broker, "broker", e.string("BROKER", d.Broker), "MQTT broker address (empty to disable)")
	fs.DurationVar(&c.Heartbeat, "heartbeat", e.duration("HEARTBEAT", d.Heartbeat), "Heartbeat interval (0 to disable)")
	fs.StringVar(&c.DatabaseURL, "database-url", e.string("DATABASE_URL", d.DatabaseURL), "PostgreSQL DSN (empty for in-memory store)")
	fs.StringVar(&c.RedisAddr, "redis", e.string("REDIS", d.RedisAddr), "Redis address for the latest-reading cache (empty to disable)")
	fs.IntVar(&c.LEDPin, "led-pin", e.int("LED_PIN", d.LEDPin), "BCM pin of the alert LED (-1 to disable)")
	fs.StringVar(&c.LogLevel, "log-level", e.string("LOG_LEVEL", d.LogLevel), "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", e.string("LOG_FORMAT", d.LogFormat), "Log format: json or console")
	fs.BoolVar(&c.Diagnose, "diagnose", e.bool("DIAGNOSE", false), "Probe the serial port, print the result and exit")

	if e.err != nil {
		return Config{}, e.err
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the daemon cannot run with.
func (c Config) Validate() error {
	if c.SerialPort == "" {
		return fmt.Errorf("serial port must be set")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.BaudRate)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", c.ReadTimeout)
	}
	if c.Poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.Poll)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("heartbeat must not be negative, got %v", c.Heartbeat)
	}
	return nil
}

// SerialConfig returns the transport settings.
func (c Config) SerialConfig() serial.Config {
	return serial.Config{
		Address:     c.SerialPort,
		BaudRate:    c.BaudRate,
		ReadTimeout: c.ReadTimeout,
	}
}

// StoreKind names the configured store for status output.
func (c Config) StoreKind() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "memory"
}
