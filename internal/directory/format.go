package directory

import (
	"fmt"
	"time"
)

// FormatDate renders a timestamp the way the directory pages display it.
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// FormatRelative renders elapsed time compactly: minutes under an hour,
// hours under a day, days beyond that.
func FormatRelative(t, now time.Time) string {
	minutes := int(now.Sub(t).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}
