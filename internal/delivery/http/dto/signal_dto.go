package dto

import "time"

// CreateSignalRequest is the payload for POST /signal
type CreateSignalRequest struct {
	Asset       string    `json:"asset"`
	Direction   string    `json:"direction"`
	Targets     []float64 `json:"targets"`
	StopLoss    float64   `json:"stopLoss"`
	MaxExitTime time.Time `json:"maxExitTime"`
}

// CreateSignalResponse confirms signal creation. The id is the store-assigned
// opaque identifier rendered as a string at this boundary.
type CreateSignalResponse struct {
	SignalID  string `json:"signalId"`
	Asset     string `json:"asset"`
	Direction string `json:"direction"`
}

// MonitorStatusResponse is the payload for GET /status
type MonitorStatusResponse struct {
	MonitoringActive bool   `json:"monitoringActive"`
	OpenPositions    int    `json:"openPositions"`
	PendingSignals   int    `json:"pendingSignals"`
	CheckInterval    string `json:"checkInterval"`
}
