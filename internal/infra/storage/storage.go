package storage

import (
	"context"
	"fmt"

	"storefront/internal/config"
)

// 名前空間（ローカルに残す値ごとに1つ）
const (
	CartNamespace    = "cart-storage"
	SessionNamespace = "auth-token"
)

// Slot は名前付きの保存領域。値は丸ごと読み書きする。
type Slot interface {
	// 未保存ならnil, nilを返す
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// Store は名前空間ごとのSlotを払い出す。
type Store interface {
	Slot(name string) Slot
	Close() error
}

// Open は設定に応じた保存先を開く
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case config.StorageFile:
		return NewFileStore(cfg.StorageDir), nil
	case config.StorageSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.StorageRedis:
		return OpenRedis(ctx, cfg.RedisURL, "storefront")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
