package logic

// FanSpeedHumidity is the fan floor applied while humidity-control is active.
const FanSpeedHumidity = 128

// Plan is the actuator state derived from a trigger state set.
type Plan struct {
	FanSpeed  int  `json:"fan_speed"`
	ValveOpen bool `json:"valve_open"`
}

// Reconcile derives the actuator plan from trigger states.
// Precedence: temperature-cooldown forces full speed; otherwise humidity-control
// raises the fan to at least FanSpeedHumidity; otherwise the fan stays at 0.
// The valve follows valve-monitor.
func Reconcile(states StateSet) Plan {
	fan := 0
	if states[TriggerTemperatureCooldown] {
		fan = FanSpeedMax
	} else if states[TriggerHumidityControl] {
		fan = max(fan, FanSpeedHumidity)
	}

	return Plan{
		FanSpeed:  fan,
		ValveOpen: states[TriggerValveMonitor],
	}
}

// Commands returns the commands that apply the plan, in transmission order.
func (p Plan) Commands() []Command {
	return []Command{FanSpeed(p.FanSpeed), Valve(p.ValveOpen)}
}
