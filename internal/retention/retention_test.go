package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var today = time.Date(2025, time.March, 10, 18, 30, 0, 0, time.Local)

func day(offset int) string {
	return today.AddDate(0, 0, offset).Format(DateLayout)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name       string
		bestBefore string
		want       Level
	}{
		{"no date", "", Unknown},
		{"malformed", "10/03/2025", Unknown},
		{"garbage", "soon", Unknown},
		{"far away", day(45), Green},
		{"just past warning", day(31), Green},
		{"warning boundary", day(30), Yellow},
		{"inside warning", day(20), Yellow},
		{"just past critical", day(15), Yellow},
		{"critical boundary", day(14), Red},
		{"inside critical", day(5), Red},
		{"tomorrow", day(1), Red},
		{"today", day(0), Red},
		{"expired", day(-3), Red},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.bestBefore, 30, 14, today))
		})
	}
}

func TestStatusIsMonotonic(t *testing.T) {
	rank := map[Level]int{Green: 0, Yellow: 1, Red: 2}
	prev := rank[Status(day(60), 30, 14, today)]
	for offset := 59; offset >= -5; offset-- {
		cur := rank[Status(day(offset), 30, 14, today)]
		assert.GreaterOrEqual(t, cur, prev, "offset %d", offset)
		prev = cur
	}
}

func TestDaysUntilIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2025, time.March, 10, 23, 59, 0, 0, time.Local)
	days, ok := DaysUntil("2025-03-11", late)
	assert.True(t, ok)
	assert.Equal(t, 1, days)
}

func TestThresholdsNormalize(t *testing.T) {
	assert.Equal(t, Thresholds{Warning: 10, Critical: 10}, Thresholds{Warning: 10, Critical: 20}.Normalize())
	assert.Equal(t, Thresholds{Warning: 0, Critical: 0}, Thresholds{Warning: -1, Critical: -5}.Normalize())
	assert.Equal(t, DefaultThresholds(), DefaultThresholds().Normalize())
}

func TestClassifier(t *testing.T) {
	c := NewClassifier(Thresholds{Warning: 7, Critical: 2})
	c.Now = func() time.Time { return today }

	assert.Equal(t, Green, c.Status(day(8)))
	assert.Equal(t, Yellow, c.Status(day(3)))
	assert.Equal(t, Red, c.Status(day(2)))
	assert.Equal(t, Unknown, c.Status(""))
}
