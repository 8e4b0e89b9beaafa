package resilience

import "time"

// BuildSettings turns config knobs into Settings. Non-positive values fall
// back to a 60s interval, a 30s open timeout, 5 failures and 1 trial request.
func BuildSettings(name string, intervalSeconds, timeoutSeconds, failureThreshold, successThreshold int) Settings {
	return Settings{
		Name:             name,
		Interval:         seconds(intervalSeconds, 60),
		Timeout:          seconds(timeoutSeconds, 30),
		FailureThreshold: count(failureThreshold, 5),
		SuccessThreshold: count(successThreshold, 1),
	}
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

func count(v, fallback int) uint32 {
	if v <= 0 {
		v = fallback
	}
	return uint32(v)
}
