package service

import (
	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/repository"
)

// DefaultSinkRegistry registers the built-in adapter for every BackendKind.
func DefaultSinkRegistry() *SinkRegistry {
	r := NewSinkRegistry()
	r.Register(model.BackendMongoDB, func() SinkAdapter { return repository.NewMongoMetadataRepo("") })
	r.Register(model.BackendPostgres, func() SinkAdapter { return repository.NewPostgresMetadataRepo() })
	r.Register(model.BackendMySQL, func() SinkAdapter { return repository.NewGormMetadataRepo(model.BackendMySQL) })
	r.Register(model.BackendMariaDB, func() SinkAdapter { return repository.NewGormMetadataRepo(model.BackendMariaDB) })
	r.Register(model.BackendSQLite, func() SinkAdapter { return repository.NewGormMetadataRepo(model.BackendSQLite) })
	r.Register(model.BackendFirestore, func() SinkAdapter { return repository.NewFirestoreMetadataRepo() })
	r.Register(model.BackendFirebaseRealtime, func() SinkAdapter { return repository.NewRealtimeMetadataRepo() })
	r.Register(model.BackendCassandra, func() SinkAdapter { return repository.NewCassandraMetadataRepo() })
	r.Register(model.BackendNeo4j, func() SinkAdapter { return repository.NewNeo4jMetadataRepo("") })
	return r
}
