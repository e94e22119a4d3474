package cache

import (
	"context"
	"time"
)

const statusSnapshotTTL = 10 * time.Second

const statusSnapshotKey = "admin:status"

// GetStatusSnapshot 读取后台状态面板缓存
func GetStatusSnapshot(ctx context.Context, dest interface{}) (bool, error) {
	return GetJSON(ctx, statusSnapshotKey, dest)
}

// SetStatusSnapshot 写入后台状态面板缓存
func SetStatusSnapshot(ctx context.Context, snapshot interface{}) error {
	return SetJSON(ctx, statusSnapshotKey, snapshot, statusSnapshotTTL)
}

// InvalidateStatusSnapshot 订单状态变化后清除状态面板缓存
func InvalidateStatusSnapshot(ctx context.Context) error {
	return Del(ctx, statusSnapshotKey)
}
