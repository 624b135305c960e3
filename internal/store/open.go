package store

import (
	"context"
	"fmt"

	"avalon-be/internal/config"

	"go.uber.org/zap"
)

// Open 按配置的驱动创建存储
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.DRIVER_MEMORY, "":
		zap.L().Warn("使用内存存储，进程重启后对局数据会丢失")
		return NewMemoryStore(), nil
	case config.DRIVER_SQLITE:
		return OpenSQLite(ctx, cfg.DSN)
	case config.DRIVER_POSTGRES:
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
