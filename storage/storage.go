package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/session"
	"github.com/trezcool/lms-admin/storage/database"
	filestore "github.com/trezcool/lms-admin/storage/file"
	memstore "github.com/trezcool/lms-admin/storage/memory"
	redisstore "github.com/trezcool/lms-admin/storage/redis"
)

// Open builds the storage backend named by conf.Driver.
// The returned close func releases the backend's connections; it is never nil.
func Open(ctx context.Context, conf core.StorageConfig) (session.Storage, func() error, error) {
	noop := func() error { return nil }

	switch conf.Driver {
	case "", "memory":
		return memstore.New(conf.TTL), noop, nil

	case "file":
		path := conf.Path
		if path == "" {
			path = filestore.DefaultPath()
		}
		return filestore.New(path), noop, nil

	case "redis":
		rdb, err := redisstore.Dial(ctx, conf.URL)
		if err != nil {
			return nil, noop, err
		}
		return redisstore.New(rdb, conf.TTL), rdb.Close, nil

	case "postgres", "sqlite":
		db, err := database.Open(conf)
		if err != nil {
			return nil, noop, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return database.NewStore(db, conf.TTL), db.Close, nil
	}
	return nil, noop, errors.Errorf("unknown storage driver %q", conf.Driver)
}
