package docstore

import (
	"github.com/pkg/errors"

	"lemansstrat/pkg/config"
)

func NewFromConfig(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.StoreWebSocket:
		if cfg.WebSocketURL == "" {
			return nil, errors.New("websocket store needs store.websocket.url")
		}
		return NewWebSocketStore(cfg.WebSocketURL), nil
	default:
		return nil, errors.Errorf("unknown store type %q", cfg.Type)
	}
}
