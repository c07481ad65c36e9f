package service

// Thresholds holds the voltage calibration points the watering
// decisions compare against. WaterCritical must sit below WaterLow;
// config validation owns that invariant.
//
// Soil probes report a higher voltage as the soil dries, while the
// reservoir probe reports a lower voltage as the tank drains. The
// opposite polarities are part of the sensor contract; do not normalize
// them to a common direction.
type Thresholds struct {
	SoilDry       float64
	WaterLow      float64
	WaterCritical float64
}

func (t Thresholds) IsSoilDry(voltage float64) bool { return voltage > t.SoilDry }

func (t Thresholds) IsWaterLow(voltage float64) bool { return voltage < t.WaterLow }

func (t Thresholds) IsWaterCritical(voltage float64) bool { return voltage < t.WaterCritical }

// Channels maps the two probes to their ADC channels.
type Channels struct {
	Soil  int
	Water int
}
