package preview

import (
	"strings"
	"time"
)

// PresentLabel 在职经历的结束时间展示文案。
const PresentLabel = "Present"

const displayLayout = "Jan 2006"

var inputLayouts = []string{
	"2006-01-02",
	"2006-01",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/2006",
	"2006",
}

// FormatDate 把日期渲染成 "Mar 2021"；空值返回 ""，无法识别的输入原样返回。
func FormatDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(displayLayout)
		}
	}
	return value
}

// FormatPeriod 拼接起止时间，current 为 true 时结束时间固定为 Present。
func FormatPeriod(start, end string, current bool) string {
	from := FormatDate(start)
	to := FormatDate(end)
	if current {
		to = PresentLabel
	}
	switch {
	case from != "" && to != "":
		return from + " - " + to
	case from != "":
		return from
	default:
		return to
	}
}
