package clock

import (
	"fmt"
	"time"
)

// Window 半开时间窗口 [Start, End)，nil 表示不限
type Window struct {
	Start *time.Time
	End   *time.Time
}

// NewWindow 创建时间窗口
func NewWindow(start, end *time.Time) Window {
	return Window{Start: start, End: end}
}

// Contains 判断时间点是否在窗口内（包含开始，不包含结束）
func (w Window) Contains(t time.Time) bool {
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && !t.Before(*w.End) {
		return false
	}
	return true
}

// NotStarted 窗口尚未开始
func (w Window) NotStarted(t time.Time) bool {
	return w.Start != nil && t.Before(*w.Start)
}

// Ended 窗口已结束
func (w Window) Ended(t time.Time) bool {
	return w.End != nil && !t.Before(*w.End)
}

// Valid 开始时间早于结束时间
func (w Window) Valid() bool {
	if w.Start == nil || w.End == nil {
		return true
	}
	return w.Start.Before(*w.End)
}

// Remaining 距离结束的剩余时长，无结束时间返回 false
func (w Window) Remaining(now time.Time) (time.Duration, bool) {
	if w.End == nil {
		return 0, false
	}
	d := w.End.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// HumanizeRemaining 剩余时长的展示文本
func HumanizeRemaining(d time.Duration) string {
	if d <= 0 {
		return "ended"
	}
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return "<1m"
	}
}
