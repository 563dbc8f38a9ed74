// Package parse turns the free-text columns of inventory sheets into typed
// resource fields.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"asset-booking-backend/internal/model"
)

var (
	spaceRe  = regexp.MustCompile(`[\s_\-]+`)
	healthRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*%?$`)
	sizeRe   = regexp.MustCompile(`(?i)(\d+)\s*u\b`)
)

// 表格里常见的中文状态也一并识别
var statusWords = []struct {
	status model.Status
	words  []string
}{
	{model.StatusAvailable, []string{"available", "free", "idle", "空闲", "可用", "闲置"}},
	{model.StatusOccupied, []string{"occupied", "in use", "busy", "booked", "reserved", "使用中", "占用", "已占用", "已预约"}},
	{model.StatusMaintenance, []string{"maintenance", "under maintenance", "in maintenance", "repair", "broken", "down", "维修", "维修中", "保养", "故障"}},
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/1/2 15:04",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"1/2/2006",
}

// Status maps a free-text status to a Status. Blank text is available. Unknown
// text is also available but reports ok=false so the caller can warn about it.
func Status(raw string) (status model.Status, ok bool) {
	key := strings.TrimSpace(spaceRe.ReplaceAllString(strings.ToLower(raw), " "))
	if key == "" {
		return model.StatusAvailable, true
	}
	for _, sw := range statusWords {
		for _, w := range sw.words {
			if key == w {
				return sw.status, true
			}
		}
	}
	return model.StatusAvailable, false
}

// Health parses "85", "85%" or "85.5" and clamps the result to 0..100. A
// blank value means a healthy resource.
func Health(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 100, nil
	}
	m := healthRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unable to parse health: %q", raw)
	}
	h, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse health %q: %w", raw, err)
	}
	if h > 100 {
		h = 100
	}
	return h, nil
}

// Date parses the date formats found in inventory sheets. Values without a
// zone are read in loc, or UTC when loc is nil. A blank value is the zero time.
func Date(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", raw)
}

// Size normalizes a slot size such as "4 u" or "42U rack" to "42U". Text
// without a rack-unit count is returned trimmed.
func Size(raw string) string {
	s := strings.TrimSpace(raw)
	if m := sizeRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return strconv.Itoa(n) + "U"
		}
	}
	return s
}
