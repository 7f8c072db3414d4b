// internal/common/idgen/generator.go
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generator ID 생성기
type Generator struct {
	prefix string
}

// NewGenerator 새 ID 생성기 생성
func NewGenerator(prefix ...string) *Generator {
	var p string
	if len(prefix) > 0 {
		p = prefix[0]
	}
	return &Generator{
		prefix: p,
	}
}

// OrderID 오더 ID 생성 (32자리 hex)
func (g *Generator) OrderID() string {
	return g.generateHex(16)
}

// ActionID 액션 ID 생성 (32자리 hex)
func (g *Generator) ActionID() string {
	return g.generateHex(16)
}

// MissionID 미션 ID 생성 (UUID)
func (g *Generator) MissionID() string {
	id := uuid.NewString()
	if g.prefix != "" {
		return g.prefix + "_" + id
	}
	return id
}

// generateHex 지정된 바이트 수만큼 hex 문자열 생성
func (g *Generator) generateHex(byteCount int) string {
	randomBytes := make([]byte, byteCount)
	if _, err := rand.Read(randomBytes); err != nil {
		// 랜덤 생성 실패 시 타임스탬프 기반 fallback
		return fmt.Sprintf("fallback_%d", time.Now().UnixNano())
	}

	hexStr := hex.EncodeToString(randomBytes)
	if g.prefix != "" {
		return fmt.Sprintf("%s_%s", g.prefix, hexStr)
	}
	return hexStr
}

// Default 기본 생성기
var Default = NewGenerator()

// MissionID 미션 ID 생성
func MissionID() string {
	return Default.MissionID()
}
