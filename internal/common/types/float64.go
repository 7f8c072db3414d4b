// internal/common/types/float64.go
package types

import (
	"strconv"
	"strings"
)

// Float64 항상 소수점을 포함하는 float64 (JSON 마샬링용)
// 일부 로봇 펌웨어는 정수 형태의 좌표를 거부한다.
type Float64 float64

// MarshalJSON JSON 마샬링 시 항상 소수점 포함
func (f Float64) MarshalJSON() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalJSON JSON 언마샬링
func (f *Float64) UnmarshalJSON(data []byte) error {
	val, err := strconv.ParseFloat(strings.Trim(string(data), `"`), 64)
	if err != nil {
		return err
	}
	*f = Float64(val)
	return nil
}

// Float64Value float64 값 반환
func (f Float64) Float64Value() float64 {
	return float64(f)
}

// String 문자열 표현
func (f Float64) String() string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
