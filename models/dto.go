package models

// LoginRequest is the PIN login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Pin      string `json:"pin"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// GenerateScheduleResponse reports the outcome of one schedule generation run.
type GenerateScheduleResponse struct {
	DaysScheduled   int      `json:"daysScheduled"`
	VideosScheduled int      `json:"videosScheduled"`
	Dates           []string `json:"dates"`
}

// ChannelFetchResult is the per-channel outcome of a catalog refresh.
type ChannelFetchResult struct {
	ChannelURL  string `json:"channelUrl"`
	Success     bool   `json:"success"`
	VideosCount int    `json:"videosCount,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ProcessDayResult reports the outcome of running the pipeline over one date.
type ProcessDayResult struct {
	Date      string `json:"date"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Delivered int    `json:"delivered"`
}
