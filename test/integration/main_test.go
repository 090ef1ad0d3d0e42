package integration

import (
	"fmt"
	"os"
	"testing"

	"github.com/fhuszti/property-media-ms-go/internal/repository/mariadb"
	"github.com/fhuszti/property-media-ms-go/internal/storage"
	"github.com/fhuszti/property-media-ms-go/test/testutil"
	"github.com/minio/minio-go/v7"
)

var (
	GlobalMinioClient *minio.Client
	GlobalStrg        *storage.MinioStorage
	RedisAddr         string
)

func TestMain(m *testing.M) {
	code := func() int {
		dbCleanup, err := setupMariaDB()
		if err != nil {
			fmt.Fprintf(os.Stderr, "DB setup failed: %v\n", err)
			return 1
		}
		defer dbCleanup()

		minioCleanup, err := setupMinIO()
		if err != nil {
			fmt.Fprintf(os.Stderr, "MinIO setup failed: %v\n", err)
			return 1
		}
		defer minioCleanup()

		redisCleanup, err := setupRedis()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Redis setup failed: %v\n", err)
			return 1
		}
		defer redisCleanup()

		return m.Run()
	}()

	os.Exit(code)
}

func setupMariaDB() (cleanup func(), err error) {
	if os.Getenv("TEST_DB_DSN") != "" {
		// CI provided it; nothing to clean up
		return func() {}, nil
	}

	mdb, err := testutil.StartMariaDBContainer()
	if err != nil {
		return nil, err
	}
	if err := os.Setenv("TEST_DB_DSN", mdb.DSN); err != nil {
		mdb.Cleanup()
		return nil, err
	}
	return mdb.Cleanup, nil
}

func setupMinIO() (cleanup func(), err error) {
	if endpoint := os.Getenv("TEST_MINIO_ENDPOINT"); endpoint != "" {
		client, strg, err := testutil.NewMinIOClients(
			endpoint,
			os.Getenv("TEST_MINIO_ACCESS_KEY"),
			os.Getenv("TEST_MINIO_SECRET_KEY"),
			os.Getenv("TEST_MINIO_USE_SSL") == "true",
		)
		if err != nil {
			return nil, err
		}
		GlobalMinioClient, GlobalStrg = client, strg
		return func() {}, nil
	}

	// local path: start a container
	mi, err := testutil.StartMinIOContainer()
	if err != nil {
		return nil, err
	}
	GlobalMinioClient, GlobalStrg = mi.Client, mi.Strg
	return mi.Cleanup, nil
}

func setupRedis() (cleanup func(), err error) {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		RedisAddr = addr
		return func() {}, nil
	}
	ri, err := testutil.StartRedisContainer()
	if err != nil {
		return nil, err
	}
	RedisAddr = ri.Addr
	return ri.Cleanup, nil
}

// setupLedger gives each test its own migrated database.
func setupLedger(t *testing.T) (*testutil.TestDB, *mariadb.MediaItemRepository) {
	t.Helper()
	testDB := testutil.MigratedDB(t)
	return testDB, mariadb.NewMediaItemRepository(testDB.DB)
}
