package shared

import (
	"fmt"
	"time"
)

// DayLockKey builds redis keys serialising writes to one location day.
func DayLockKey(locationID int64, day time.Time) string {
	return fmt.Sprintf("rinde:location:%d:day:%s:lock", locationID, day.Format("2006-01-02"))
}
