package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidClock = errors.New("时间格式错误")

// Minutes 表示以分钟计的时刻（相对午夜或时间窗起点）
// JSON 中既可以是数字，也可以是 "HH:MM" 或 "HH:MM:SS" 字符串
type Minutes float64

// ParseClock 将 "HH:MM[:SS]" 解析为分钟，小时允许超过 23（跨午夜的晚点）
func ParseClock(s string) (Minutes, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}

	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		if i > 0 && v > 59 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
		values[i] = v
	}

	return Minutes(float64(values[0]*60+values[1]) + float64(values[2])/60.0), nil
}

// Clock 格式化为 "HH:MM:SS"，不对 24 小时取模
func (m Minutes) Clock() string {
	totalSeconds := int64(math.Round(float64(m) * 60))
	sign := ""
	if totalSeconds < 0 {
		sign = "-"
		totalSeconds = -totalSeconds
	}
	h := totalSeconds / 3600
	mm := (totalSeconds % 3600) / 60
	ss := totalSeconds % 60
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, mm, ss)
}

func (m Minutes) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Clock())
}

func (m *Minutes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseClock(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClock, string(data))
	}
	*m = Minutes(v)
	return nil
}
