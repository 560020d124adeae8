package instance

import (
	"os"
	"strings"
)

// GetID identifies this worker process for lock ownership and logs. It prefers
// DELICADO_WORKER_ID, then the hostname.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("DELICADO_WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
