// Package handlers provides the HTTP API handlers of the monitor status
// server.
package handlers

import "time"

// LivezResponse is the body of the liveness probe.
type LivezResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	Uptime        string            `json:"uptime"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Host          HostInfo          `json:"host"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// HostInfo describes the machine mythctl runs on.
type HostInfo struct {
	Cores         int     `json:"cores"`
	Load1Min      float64 `json:"load_1min"`
	Load5Min      float64 `json:"load_5min"`
	Load15Min     float64 `json:"load_15min"`
	TotalMemoryMB float64 `json:"total_memory_mb"`
	UsedMemoryMB  float64 `json:"used_memory_mb"`
	ProcessRSSMB  float64 `json:"process_rss_mb"`
}

// MonitorStatus is the outcome of the latest backend check.
type MonitorStatus struct {
	CheckedAt  time.Time            `json:"checked_at"`
	TotalBytes int64                `json:"total_bytes"`
	FreeBytes  int64                `json:"free_bytes"`
	Free       string               `json:"free"`
	LowSpace   bool                 `json:"low_space"`
	Conflicts  []ScheduledRecording `json:"conflicts"`
	Upcoming   []ScheduledRecording `json:"upcoming"`
}

// ScheduledRecording is one program of the pending schedule.
type ScheduledRecording struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle,omitempty"`
	Channel  string    `json:"channel"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Status   string    `json:"status"`
}
