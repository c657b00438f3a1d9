package model

import "strings"

// BackendKind names a storage backend a MetadataRecord can be persisted to.
type BackendKind string

const (
	BackendMongoDB          BackendKind = "mongodb"
	BackendPostgres         BackendKind = "postgres"
	BackendMySQL            BackendKind = "mysql"
	BackendFirestore        BackendKind = "firestore"
	BackendFirebaseRealtime BackendKind = "firebaserealtime"
	BackendSQLite           BackendKind = "sqlite"
	BackendCassandra        BackendKind = "cassandra"
	BackendNeo4j            BackendKind = "neo4j"
	BackendMariaDB          BackendKind = "mariadb"
)

// BackendKinds lists every built-in backend.
var BackendKinds = []BackendKind{
	BackendMongoDB,
	BackendPostgres,
	BackendMySQL,
	BackendFirestore,
	BackendFirebaseRealtime,
	BackendSQLite,
	BackendCassandra,
	BackendNeo4j,
	BackendMariaDB,
}

// APIMethod is a lowercase HTTP verb as stored in MetadataRecord.APIMethod.
type APIMethod string

const (
	MethodGet     APIMethod = "get"
	MethodPost    APIMethod = "post"
	MethodPut     APIMethod = "put"
	MethodDelete  APIMethod = "delete"
	MethodPatch   APIMethod = "patch"
	MethodHead    APIMethod = "head"
	MethodOptions APIMethod = "options"
	MethodConnect APIMethod = "connect"
	MethodTrace   APIMethod = "trace"
)

func NormalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
