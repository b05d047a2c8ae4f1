// Package builtin holds plugin.Plugin implementations shipped with the
// agent.
package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/hedaas-code/neoagent/internal/plugin"
)

// SysTime reports the current system time as plugin context.
type SysTime struct {
	Now func() time.Time
}

// NewSysTime builds a SysTime plugin using the real wall clock.
func NewSysTime() *SysTime {
	return &SysTime{Now: time.Now}
}

func (s *SysTime) ToolID() string      { return "systime" }
func (s *SysTime) Name() string        { return "System Time" }
func (s *SysTime) Description() string { return "Reports the current date, time, weekday, and time-of-day band." }
func (s *SysTime) Enabled() bool       { return true }

func (s *SysTime) Keywords() []string {
	return []string{"time", "date", "what time", "几点", "现在", "日期", "星期"}
}

func (s *SysTime) Invoke(ctx context.Context, pctx plugin.Context) (plugin.Result, error) {
	now := s.Now()
	weekday := now.Weekday().String()
	period := period(now.Hour())
	text := fmt.Sprintf("It is %s, %s, %s.", now.Format("2006-01-02 15:04:05"), weekday, period)
	return plugin.Result{Context: text}, nil
}

func period(hour int) string {
	switch {
	case hour >= 5 && hour < 9:
		return "early morning"
	case hour >= 9 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 14:
		return "noon"
	case hour >= 14 && hour < 18:
		return "afternoon"
	case hour >= 18 && hour < 22:
		return "evening"
	default:
		return "late night"
	}
}
