package clock

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultTimezone 默认业务时区
const DefaultTimezone = "Asia/Kathmandu"

// DefaultUTCOffsetMinutes 默认业务时区偏移（+05:45）
const DefaultUTCOffsetMinutes = 345

// Clock 当前时间来源
type Clock interface {
	Now() time.Time
}

// Business 业务时钟：统一使用 UTC 瞬时值，按固定业务时区展示与解析
type Business struct {
	loc *time.Location
	now func() time.Time
}

// NewBusiness 创建业务时钟，时区数据不可用时回退到固定偏移
func NewBusiness(timezone string, offsetMinutes int) *Business {
	return &Business{
		loc: LoadLocation(timezone, offsetMinutes),
		now: time.Now,
	}
}

// LoadLocation 加载业务时区
func LoadLocation(timezone string, offsetMinutes int) *time.Location {
	name := strings.TrimSpace(timezone)
	if name == "" {
		name = DefaultTimezone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if offsetMinutes == 0 && name == DefaultTimezone {
		offsetMinutes = DefaultUTCOffsetMinutes
	}
	return time.FixedZone(fixedZoneName(offsetMinutes), offsetMinutes*60)
}

func fixedZoneName(offsetMinutes int) string {
	sign := "+"
	if offsetMinutes < 0 {
		sign = "-"
		offsetMinutes = -offsetMinutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offsetMinutes/60, offsetMinutes%60)
}

// Now 返回当前 UTC 时间
func (b *Business) Now() time.Time {
	return b.now().UTC()
}

// Location 业务时区
func (b *Business) Location() *time.Location {
	return b.loc
}

// ToBusiness 转换为业务时区时间
func (b *Business) ToBusiness(t time.Time) time.Time {
	return t.In(b.loc)
}

// ToUTC 转换为 UTC
func (b *Business) ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// ParseBusiness 以业务时区解释无时区的时间字符串
func (b *Business) ParseBusiness(layout, value string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(value), b.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// StartOfBusinessDay 业务时区当天零点（UTC 表示）
func (b *Business) StartOfBusinessDay(t time.Time) time.Time {
	local := t.In(b.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, b.loc).UTC()
}

// Fixed 固定时钟，供测试使用
type Fixed struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFixed 创建固定时钟
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now.UTC()}
}

// Now 返回当前设定时间
func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set 设定时间
func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	f.now = now.UTC()
	f.mu.Unlock()
}

// Advance 推进时间
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
