package activity

import (
	"strings"
	"time"

	"meetup-backend/internal/global/response"
)

const (
	defaultAgeMin = 0
	defaultAgeMax = 150
	previewSize   = 5
	dateLayout    = "2006-01-02"
)

// womenOnlyGenders 女性专属活动允许的性别，比较时忽略大小写
var womenOnlyGenders = map[string]struct{}{
	"female":     {},
	"woman":      {},
	"non-binary": {},
	"nonbinary":  {},
}

func genderAllowed(gender string) bool {
	_, ok := womenOnlyGenders[strings.ToLower(strings.TrimSpace(gender))]
	return ok
}

// ageOn 按生日计算周岁，当年生日未到减一
func ageOn(birth, today time.Time) int {
	birth, today = birth.UTC(), today.UTC()
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

// resolveAgeRange 补齐默认值并校验上下限
func resolveAgeRange(lower, upper *int) (int, int, error) {
	ageMin, ageMax := defaultAgeMin, defaultAgeMax
	if lower != nil {
		ageMin = *lower
	}
	if upper != nil {
		ageMax = *upper
	}
	if ageMin < 0 || ageMax < 0 {
		return 0, 0, response.ErrInvalidAgeRange.WithTips("年龄不能为负数")
	}
	if ageMin > ageMax {
		return 0, 0, response.ErrInvalidAgeRange.WithTipsf("最小年龄 %d 大于最大年龄 %d", ageMin, ageMax)
	}
	return ageMin, ageMax, nil
}

var clockLayouts = []string{"15:04", "15:04:05"}

// parseSpecificTime 先按时刻解析并落在 1970-01-01，失败再按完整时间戳解析
func parseSpecificTime(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(1970, time.January, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, response.ErrInvalidTimeFormat.WithTipsf("无法解析 specific_time %q", raw)
}

// parseDate 活动日期统一为 UTC 零点
func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, response.ErrInvalidTimeFormat.WithTipsf("日期格式应为 YYYY-MM-DD，收到 %q", raw)
	}
	return t, nil
}
