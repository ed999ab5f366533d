package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldSeparator splits the controller's reading line into fields.
const FieldSeparator = ", "

// FieldCount is the number of fields in a reading line.
const FieldCount = 5

// ErrParse is wrapped by every ParseLine rejection.
var ErrParse = errors.New("parse reading")

// fieldNames lists the fields in wire order.
var fieldNames = [FieldCount]string{"temp_f", "fan_signal", "moisture_a", "moisture_b", "humidity"}

// ParseLine converts one line from the controller into a Reading stamped with now.
// The line must hold exactly five numeric fields in the order
// temp_f, fan_signal, moisture_a, moisture_b, humidity.
func ParseLine(line string, now time.Time) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, fmt.Errorf("%w: empty line", ErrParse)
	}

	parts := strings.Split(line, FieldSeparator)
	if len(parts) != FieldCount {
		return Reading{}, fmt.Errorf("%w: expected %d fields, got %d", ErrParse, FieldCount, len(parts))
	}

	var values [FieldCount]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: field %s: %q is not a number", ErrParse, fieldNames[i], p)
		}
		values[i] = v
	}

	return Reading{
		Timestamp: now,
		TempF:     values[0],
		FanSignal: values[1],
		MoistureA: values[2],
		MoistureB: values[3],
		Humidity:  values[4],
	}, nil
}
