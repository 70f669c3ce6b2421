package backup

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	_ "modernc.org/sqlite"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out s3.ListObjectsV2Output
	for key := range m.objects {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key)})
	}
	return &out, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestManagerDisabledWithoutCredentials(t *testing.T) {
	m := NewManager(Config{}, nil, slog.Default())
	if m.Status().Enabled {
		t.Error("expected manager to be disabled without S3 config")
	}

	// Start and Stop on a disabled manager are no-ops.
	m.Start(context.Background())
	m.Stop()
}

func TestRunNowUploadsSnapshot(t *testing.T) {
	db := testDB(t)
	m := NewManager(Config{
		S3:     S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		DBPath: "ignored",
	}, db, slog.Default())

	mock := newMockS3()
	m.client = mock

	if err := m.RunNow(context.Background()); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	mock.mu.Lock()
	n := len(mock.objects)
	mock.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected 1 uploaded object, got %d", n)
	}

	status := m.Status()
	if status.LastBackup == nil {
		t.Error("expected LastBackup to be set")
	}
	if status.LastError != "" {
		t.Errorf("expected no error, got %q", status.LastError)
	}
}

func TestCleanupKeepsNewest(t *testing.T) {
	m := NewManager(Config{
		S3:        S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
		KeepCount: 2,
	}, nil, slog.Default())

	mock := newMockS3()
	mock.objects["snapshots/seedling-2026-01-01T000000Z.db"] = []byte("a")
	mock.objects["snapshots/seedling-2026-01-02T000000Z.db"] = []byte("b")
	mock.objects["snapshots/seedling-2026-01-03T000000Z.db"] = []byte("c")
	m.client = mock

	if err := m.cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if len(mock.objects) != 2 {
		t.Fatalf("expected 2 objects after cleanup, got %d", len(mock.objects))
	}
	if _, ok := mock.objects["snapshots/seedling-2026-01-01T000000Z.db"]; ok {
		t.Error("oldest snapshot should have been deleted")
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(Config{
		S3: S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"},
	}, nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}
