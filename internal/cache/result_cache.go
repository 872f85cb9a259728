package cache

import (
	"context"
	"fmt"
	"time"
)

const resultCacheTTL = 5 * time.Minute

func resultKey(rollNumber string) string {
	return fmt.Sprintf("result:%s", rollNumber)
}

// GetResult 获取学号查询结果缓存
func GetResult(ctx context.Context, rollNumber string, dest interface{}) (bool, error) {
	if rollNumber == "" {
		return false, nil
	}
	return GetJSON(ctx, resultKey(rollNumber), dest)
}

// SetResult 写入学号查询结果缓存
func SetResult(ctx context.Context, rollNumber string, value interface{}) error {
	if rollNumber == "" {
		return nil
	}
	return SetJSON(ctx, resultKey(rollNumber), value, resultCacheTTL)
}

// DelResult 删除学号查询结果缓存
// 证书更新或删除后调用，避免公开查询读到旧数据
func DelResult(ctx context.Context, rollNumber string) error {
	if rollNumber == "" {
		return nil
	}
	return Del(ctx, resultKey(rollNumber))
}
