package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// One mongod serves every test in the package; each test gets its own database
	sharedMongo    *tcmongo.MongoDBContainer
	sharedMongoMu  sync.Mutex
	sharedMongoURI string
)

// newTestDatabase returns an empty database on a real mongod started with testcontainers
func newTestDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping MongoDB integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	sharedMongoMu.Lock()
	if sharedMongo == nil {
		container, err := tcmongo.Run(ctx, "mongo:7")
		if err != nil {
			sharedMongoMu.Unlock()
			require.NoError(t, err, "Failed to start MongoDB container")
		}
		uri, err := container.ConnectionString(ctx)
		if err != nil {
			sharedMongoMu.Unlock()
			require.NoError(t, err, "Failed to get connection string")
		}
		sharedMongo = container
		sharedMongoURI = uri
	}
	uri := sharedMongoURI
	sharedMongoMu.Unlock()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")

	name := "sync_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	db := client.Database(name)

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(cleanupCtx)
		_ = client.Disconnect(cleanupCtx)
	})

	return db
}
