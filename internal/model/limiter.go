package model

import "time"

// LimiterStatus is a point-in-time snapshot of one rate window
type LimiterStatus struct {
	ResourceKey   string
	Count         int32
	Limit         int32
	Remaining     int32
	WindowResetAt time.Time
}
