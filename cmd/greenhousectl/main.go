// Command greenhousectl talks to a running greenhouse-controller over HTTP.
//
//	greenhousectl [-addr URL] data
//	greenhousectl water on|off
//	greenhousectl fan 0-255
//	greenhousectl auto
//	greenhousectl light on|off
//	greenhousectl triggers
//	greenhousectl reset
//	greenhousectl history [-hours N]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sweeney/greenhouse-controller/internal/client"
	"github.com/sweeney/greenhouse-controller/internal/logic"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, time.Now); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "greenhousectl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, now func() time.Time) error {
	fs := flag.NewFlagSet("greenhousectl", flag.ContinueOnError)
	addr := fs.String("addr", envOr("GREENHOUSE_ADDR", "http://127.0.0.1:8080"), "Daemon base URL")
	timeout := fs.Duration("timeout", client.DefaultTimeout, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("missing command (data, water, fan, auto, light, triggers, reset, history)")
	}

	c := client.New(*addr, *timeout)
	ctx := context.Background()
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "data":
		return printLatest(ctx, c, out)
	case "water", "fan", "auto", "light":
		token, err := commandToken(cmd, rest)
		if err != nil {
			return err
		}
		if err := c.Command(ctx, token); err != nil {
			return err
		}
		fmt.Fprintf(out, "sent %s\n", token)
		return nil
	case "triggers":
		states, err := c.Triggers(ctx)
		if err != nil {
			return err
		}
		printTriggers(out, states)
		return nil
	case "reset":
		res, err := c.Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "fan speed: %d\nvalve open: %v\n", res.FanSpeed, res.ValveOpen)
		printTriggers(out, res.Triggers)
		return nil
	case "history":
		return printHistory(ctx, c, out, rest, now)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// commandToken maps a CLI command to its wire token and validates it locally.
func commandToken(cmd string, args []string) (string, error) {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	var c logic.Command
	switch cmd {
	case "auto":
		c = logic.AutoMode
	case "water":
		on, err := onOff(arg)
		if err != nil {
			return "", err
		}
		c = logic.Valve(on)
	case "light":
		on, err := onOff(arg)
		if err != nil {
			return "", err
		}
		c = logic.LightOff
		if on {
			c = logic.LightOn
		}
	case "fan":
		speed, err := strconv.Atoi(arg)
		if err != nil {
			return "", fmt.Errorf("fan speed must be an integer 0-255, got %q", arg)
		}
		c = logic.FanSpeed(speed)
	}
	return c.Token()
}

func onOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func printLatest(ctx context.Context, c *client.Client, out io.Writer) error {
	r, ok, err := c.Latest(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "no readings yet")
		return nil
	}
	fmt.Fprintf(out, "Reading at %s\n", r.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "  Temperature:     %.1f F\n", r.TempF)
	fmt.Fprintf(out, "  Humidity:        %.1f %%\n", r.Humidity)
	fmt.Fprintf(out, "  Soil Moisture A: %.1f %%\n", r.MoistureA)
	fmt.Fprintf(out, "  Soil Moisture B: %.1f %%\n", r.MoistureB)
	fmt.Fprintf(out, "  Fan Signal:      %.0f\n", r.FanSignal)
	return nil
}

func printTriggers(out io.Writer, states []logic.TriggerState) {
	if len(states) == 0 {
		fmt.Fprintln(out, "no triggers evaluated (no readings yet)")
		return
	}
	for _, s := range states {
		mark := "idle"
		if s.Active {
			mark = "ACTIVE"
		}
		fmt.Fprintf(out, "%-22s %-6s %s\n", s.Name, mark, s.Details)
	}
}

func printHistory(ctx context.Context, c *client.Client, out io.Writer, args []string, now func() time.Time) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	hours := fs.Int("hours", 24, "Hours of history to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *hours <= 0 {
		return fmt.Errorf("hours must be positive, got %d", *hours)
	}

	end := now().UTC()
	start := end.Add(-time.Duration(*hours) * time.Hour)
	res, err := c.History(ctx, start, end)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d minute buckets over the past %d hours\n", len(res.Series), *hours)
	if len(res.Series) == 0 {
		return nil
	}

	sum, lo, hi := 0.0, res.Series[0].TempF, res.Series[0].TempF
	for _, b := range res.Series {
		sum += b.TempF
		lo = min(lo, b.TempF)
		hi = max(hi, b.TempF)
	}
	fmt.Fprintf(out, "  Average temperature: %.1f F\n", sum/float64(len(res.Series)))
	fmt.Fprintf(out, "  Min: %.1f F, Max: %.1f F\n", lo, hi)
	return nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
