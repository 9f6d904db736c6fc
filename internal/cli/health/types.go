// Package health provides shared types for health check responses.
package health

// StatusHealthy is the status reported by a healthy server.
const StatusHealthy = "healthy"

// Response is the body of GET /health on the development server.
type Response struct {
	Status string `json:"status"`
	Users  int    `json:"users"`
}

// Healthy reports whether the server declared itself healthy.
func (r Response) Healthy() bool {
	return r.Status == StatusHealthy
}
