package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var intervalPattern = regexp.MustCompile(`^every\s+(?:(\d+)\s+)?(second|minute|hour|day)s?(?:\s+at\s+(\d{1,2}):(\d{2}))?$`)

// translateInterval converts the interval form ("every 5 minutes",
// "every 1 day at 09:00") into an expression cron.ParseStandard accepts.
// The "at HH:MM" clause is only meaningful for daily schedules.
func translateInterval(interval string) (string, error) {
	match := intervalPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(interval)))
	if match == nil {
		return "", fmt.Errorf("invalid interval expression: %q", interval)
	}

	count := 1

	if match[1] != "" {
		parsed, err := strconv.Atoi(match[1])
		if err != nil {
			return "", fmt.Errorf("invalid interval count in %q: %w", interval, err)
		}

		count = parsed
	}

	if count < 1 {
		return "", fmt.Errorf("interval count must be at least 1 in %q", interval)
	}

	unit := match[2]

	if match[3] != "" {
		if unit != "day" || count != 1 {
			return "", fmt.Errorf("'at HH:MM' is only valid with 'every day' in %q", interval)
		}

		hour, err := strconv.Atoi(match[3])
		if err != nil || hour > 23 {
			return "", fmt.Errorf("invalid hour in %q", interval)
		}

		minute, err := strconv.Atoi(match[4])
		if err != nil || minute > 59 {
			return "", fmt.Errorf("invalid minute in %q", interval)
		}

		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}

	switch unit {
	case "second":
		return fmt.Sprintf("@every %ds", count), nil
	case "minute":
		return fmt.Sprintf("@every %dm", count), nil
	case "hour":
		return fmt.Sprintf("@every %dh", count), nil
	default: // day
		return fmt.Sprintf("@every %dh", count*24), nil
	}
}
