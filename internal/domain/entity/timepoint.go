package entity

// TimePoint marks one frame of the video chosen for extraction.
type TimePoint struct {
	Seconds float64 `json:"seconds"`
	Frame   int     `json:"frame"`
}

// VideoInfo is the stream metadata needed to plan and validate extraction.
type VideoInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	TotalFrames int     `json:"total_frames"`
}

// Size returns the frame dimensions.
func (v VideoInfo) Size() Size {
	return Size{W: v.Width, H: v.Height}
}

// Duration returns the stream length in seconds, 0 when fps is unknown.
func (v VideoInfo) Duration() float64 {
	if v.FPS <= 0 {
		return 0
	}
	return float64(v.TotalFrames) / v.FPS
}
