package instance

import "os"

const EnvInstanceID = "FLASHBACK_INSTANCE_ID"

// GetID names the running process for logs: FLASHBACK_INSTANCE_ID, then the
// platform dyno name, then the hostname.
func GetID() string {
	for _, key := range []string{EnvInstanceID, "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
