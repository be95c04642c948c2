package models

// Sample is one validated reading from the sensor board.
type Sample struct {
	IR     float64 `json:"ir"`      // infrared reading
	BPM    float64 `json:"bpm"`     // instantaneous heart rate
	AvgBPM float64 `json:"avg_bpm"` // rolling average heart rate
	GSR    float64 `json:"gsr"`     // galvanic skin response
}
