package logic

import "fmt"

// Trigger names.
const (
	TriggerTemperatureCooldown = "temperature-cooldown"
	TriggerHumidityControl     = "humidity-control"
	TriggerMoistureLowA        = "moisture-low-A"
	TriggerMoistureLowB        = "moisture-low-B"
	TriggerValveMonitor        = "valve-monitor"
	TriggerFanStatus           = "fan-status"
)

// Thresholds used by the trigger table.
const (
	CooldownTempF    = 80.0
	HumidityLimit    = 80.0
	MoistureLowLimit = 30.0
	FanRunningSignal = 0.0
)

// TriggerDefinition is a named boolean condition over a Reading.
type TriggerDefinition struct {
	Name        string
	Description string
	Predicate   func(Reading) bool
	Details     func(Reading) string
}

// Definitions is the fixed trigger table, in evaluation order.
// Adding a trigger means adding a row here.
var Definitions = []TriggerDefinition{
	{
		Name:        TriggerTemperatureCooldown,
		Description: "Run the fan at full speed while the air is too hot",
		Predicate:   func(r Reading) bool { return r.TempF > CooldownTempF },
		Details: func(r Reading) string {
			return fmt.Sprintf("temp_f=%.1f threshold>%.0f", r.TempF, CooldownTempF)
		},
	},
	{
		Name:        TriggerHumidityControl,
		Description: "Ventilate while relative humidity is too high",
		Predicate:   func(r Reading) bool { return r.Humidity > HumidityLimit },
		Details: func(r Reading) string {
			return fmt.Sprintf("humidity=%.1f threshold>%.0f", r.Humidity, HumidityLimit)
		},
	},
	{
		Name:        TriggerMoistureLowA,
		Description: "Soil moisture sensor A reads dry",
		Predicate:   moistureLowA,
		Details: func(r Reading) string {
			return fmt.Sprintf("moisture_a=%.1f threshold<%.0f", r.MoistureA, MoistureLowLimit)
		},
	},
	{
		Name:        TriggerMoistureLowB,
		Description: "Soil moisture sensor B reads dry",
		Predicate:   moistureLowB,
		Details: func(r Reading) string {
			return fmt.Sprintf("moisture_b=%.1f threshold<%.0f", r.MoistureB, MoistureLowLimit)
		},
	},
	{
		Name:        TriggerValveMonitor,
		Description: "Open the water valve while either bed is dry",
		Predicate:   func(r Reading) bool { return moistureLowA(r) || moistureLowB(r) },
		Details: func(r Reading) string {
			return fmt.Sprintf("moisture_a=%.1f moisture_b=%.1f threshold<%.0f", r.MoistureA, r.MoistureB, MoistureLowLimit)
		},
	},
	{
		Name:        TriggerFanStatus,
		Description: "Controller reports the fan running",
		Predicate:   func(r Reading) bool { return r.FanSignal > FanRunningSignal },
		Details: func(r Reading) string {
			return fmt.Sprintf("fan_signal=%.0f", r.FanSignal)
		},
	},
}

func moistureLowA(r Reading) bool { return r.MoistureA < MoistureLowLimit }
func moistureLowB(r Reading) bool { return r.MoistureB < MoistureLowLimit }

// Evaluate applies every definition to the reading, in table order.
func Evaluate(r Reading) []TriggerState {
	states := make([]TriggerState, 0, len(Definitions))
	for _, d := range Definitions {
		states = append(states, TriggerState{
			Name:        d.Name,
			Active:      d.Predicate(r),
			Description: d.Description,
			Details:     d.Details(r),
		})
	}
	return states
}

// Describe returns the description for a trigger name, or "" if unknown.
func Describe(name string) string {
	for _, d := range Definitions {
		if d.Name == name {
			return d.Description
		}
	}
	return ""
}
