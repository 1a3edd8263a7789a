package util

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// GenerateUUID 生成一个标准的 UUID (v4)
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateShortUUID 生成一个不带中划线的短 UUID
func GenerateShortUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

var lastTimeID atomic.Int64

// GenerateTimeID 基于当前时间生成单调递增的 ID（毫秒精度不够时顺延）
func GenerateTimeID(now time.Time) string {
	n := now.UnixNano()
	for {
		prev := lastTimeID.Load()
		if n <= prev {
			n = prev + 1
		}
		if lastTimeID.CompareAndSwap(prev, n) {
			return strconv.FormatInt(n, 10)
		}
	}
}
