package monitoring

// AverageLatency returns the mean HTTP request duration in seconds
func (s MetricsSnapshot) AverageLatency() float64 {
	if s.RequestCount == 0 {
		return 0
	}
	return s.TotalDuration / float64(s.RequestCount)
}

// ErrorRate returns the fraction of HTTP requests that ended in 4xx or 5xx
func (s MetricsSnapshot) ErrorRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalErrors) / float64(s.TotalRequests)
}
