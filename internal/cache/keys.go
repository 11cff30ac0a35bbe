package cache

import "fmt"

func JobStatusKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
