package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCommand is wrapped by every command rejected before transmission.
var ErrInvalidCommand = errors.New("invalid command")

// CommandKind identifies an actuator command.
type CommandKind string

const (
	CommandValveOpen   CommandKind = "VALVE_OPEN"
	CommandValveClosed CommandKind = "VALVE_CLOSED"
	CommandFanSpeed    CommandKind = "FAN_SPEED"
	CommandAutoMode    CommandKind = "AUTO_MODE"
	CommandLightOn     CommandKind = "LIGHT_ON"
	CommandLightOff    CommandKind = "LIGHT_OFF"
)

// Fan speed limits accepted by the controller.
const (
	FanSpeedMin = 0
	FanSpeedMax = 255
)

// Command is an actuator command. Speed is only meaningful for CommandFanSpeed.
type Command struct {
	Kind  CommandKind
	Speed int
}

// Convenience constructors.
var (
	ValveOpen   = Command{Kind: CommandValveOpen}
	ValveClosed = Command{Kind: CommandValveClosed}
	AutoMode    = Command{Kind: CommandAutoMode}
	LightOn     = Command{Kind: CommandLightOn}
	LightOff    = Command{Kind: CommandLightOff}
)

// FanSpeed returns a fan speed command. It is not validated until Validate or Token.
func FanSpeed(speed int) Command {
	return Command{Kind: CommandFanSpeed, Speed: speed}
}

// Valve returns ValveOpen when open is true, ValveClosed otherwise.
func Valve(open bool) Command {
	if open {
		return ValveOpen
	}
	return ValveClosed
}

// Validate checks the command can be sent to the controller.
func (c Command) Validate() error {
	switch c.Kind {
	case CommandValveOpen, CommandValveClosed, CommandAutoMode, CommandLightOn, CommandLightOff:
		return nil
	case CommandFanSpeed:
		if c.Speed < FanSpeedMin || c.Speed > FanSpeedMax {
			return fmt.Errorf("%w: fan speed %d outside %d..%d", ErrInvalidCommand, c.Speed, FanSpeedMin, FanSpeedMax)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, c.Kind)
}

// Token returns the wire token for the command, without the trailing newline.
func (c Command) Token() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	switch c.Kind {
	case CommandValveOpen:
		return "W1", nil
	case CommandValveClosed:
		return "W0", nil
	case CommandAutoMode:
		return "A", nil
	case CommandLightOn:
		return "L1", nil
	case CommandLightOff:
		return "L0", nil
	default:
		return "F:" + strconv.Itoa(c.Speed), nil
	}
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if tok, err := c.Token(); err == nil {
		return tok
	}
	if c.Kind == CommandFanSpeed {
		return fmt.Sprintf("%s(%d)", c.Kind, c.Speed)
	}
	return string(c.Kind)
}

// ParseCommand parses operator command text in wire-token form (W1, W0, A, L1, L0, F:<n>).
func ParseCommand(text string) (Command, error) {
	text = strings.TrimSpace(text)
	switch text {
	case "W1":
		return ValveOpen, nil
	case "W0":
		return ValveClosed, nil
	case "A":
		return AutoMode, nil
	case "L1":
		return LightOn, nil
	case "L0":
		return LightOff, nil
	}

	if speed, ok := strings.CutPrefix(text, "F:"); ok {
		n, err := strconv.Atoi(speed)
		if err != nil {
			return Command{}, fmt.Errorf("%w: fan speed %q is not an integer", ErrInvalidCommand, speed)
		}
		cmd := FanSpeed(n)
		if err := cmd.Validate(); err != nil {
			return Command{}, err
		}
		return cmd, nil
	}

	return Command{}, fmt.Errorf("%w: unrecognized token %q", ErrInvalidCommand, text)
}
