package migrate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/store"
)

const legacyFixture = `{
	"chats": {
		"6": {
			"1700000000000-abc": [
				{"role": "user", "text": "what is photosynthesis"},
				{"role": "model", "text": "Photosynthesis is how plants make food."}
			],
			"not-a-timestamp": [
				{"role": "user", "text": "hello"}
			]
		},
		"13": {
			"1700000100000-def": [
				{"role": "user", "text": "explain rotational inertia"}
			]
		}
	},
	"active": {
		"6": "1700000000000-abc"
	}
}`

func writeLegacy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chats.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunImportsLegacyBlob(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	path := writeLegacy(t, legacyFixture)

	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatalf("Run: %v", err)
	}

	n, _ := mem.Count(ctx)
	if n != 3 {
		t.Fatalf("expected 3 migrated conversations, got %d", n)
	}

	conv, err := mem.Get(ctx, "1700000000000-abc")
	if err != nil || conv == nil {
		t.Fatalf("migrated conversation missing: %v", err)
	}
	if conv.Class != chat.Class6 {
		t.Errorf("class = %d, want 6", conv.Class)
	}
	if conv.Title != "" {
		t.Errorf("title = %q, want empty", conv.Title)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Role != chat.RoleUser || conv.Messages[1].Role != chat.RoleModel {
		t.Errorf("roles not preserved: %+v", conv.Messages)
	}
	want := time.UnixMilli(1700000000000)
	if !conv.CreatedAt.Equal(want) {
		t.Errorf("createdAt = %v, want %v", conv.CreatedAt, want)
	}

	// Ids without a timestamp prefix fall back to now.
	conv, _ = mem.Get(ctx, "not-a-timestamp")
	if conv == nil {
		t.Fatal("conversation with opaque id not migrated")
	}
	if conv.CreatedAt.IsZero() {
		t.Error("opaque id should get a current createdAt")
	}

	if v, _ := mem.GetPref(ctx, "active_conv_6"); v != "1700000000000-abc" {
		t.Errorf("active pointer = %q", v)
	}
	if v, _ := mem.GetPref(ctx, SchemaVersionKey); v != SchemaVersion {
		t.Errorf("schema version = %q, want %q", v, SchemaVersion)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("legacy file should be deleted after successful migration")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	path := writeLegacy(t, legacyFixture)

	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatal(err)
	}
	first, _ := mem.Count(ctx)

	// Second run with a re-created legacy file must not duplicate records.
	path = writeLegacy(t, legacyFixture)
	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatal(err)
	}
	second, _ := mem.Count(ctx)
	if first != second {
		t.Errorf("second run changed record count: %d -> %d", first, second)
	}
}

func TestRunImportsAlongsideExistingConversations(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if _, err := mem.Add(ctx, &chat.Conversation{Class: chat.Class8}); err != nil {
		t.Fatal(err)
	}
	path := writeLegacy(t, legacyFixture)

	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatal(err)
	}

	n, _ := mem.Count(ctx)
	if n != 4 {
		t.Errorf("expected 1 existing + 3 migrated conversations, got %d", n)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("legacy file should be deleted after successful migration")
	}
	if v, _ := mem.GetPref(ctx, SchemaVersionKey); v != SchemaVersion {
		t.Error("schema version tag should be written")
	}
}

// flakyConvs fails Add for one conversation id.
type flakyConvs struct {
	chat.ConversationRepo
	failID string
}

func (f *flakyConvs) Add(ctx context.Context, conv *chat.Conversation) (*chat.Conversation, error) {
	if conv.ID == f.failID {
		return nil, errors.New("disk full")
	}
	return f.ConversationRepo.Add(ctx, conv)
}

func TestRunRetriesAfterPartialImport(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	path := writeLegacy(t, legacyFixture)

	flaky := &flakyConvs{ConversationRepo: mem, failID: "1700000000000-abc"}
	if err := Run(ctx, flaky, mem, path); err != nil {
		t.Fatalf("partial import must not fail startup: %v", err)
	}

	n, _ := mem.Count(ctx)
	if n >= 3 {
		t.Fatalf("expected a partial import, got all %d conversations", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("legacy file must be kept after a partial import")
	}
	if v, _ := mem.GetPref(ctx, SchemaVersionKey); v != "" {
		t.Fatalf("schema version must stay unset after a partial import, got %q", v)
	}

	// Next startup: the failure cleared, the rerun imports the rest.
	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatalf("retry: %v", err)
	}
	n, _ = mem.Count(ctx)
	if n != 3 {
		t.Errorf("expected all 3 conversations after retry, got %d", n)
	}
	if conv, _ := mem.Get(ctx, "1700000000000-abc"); conv == nil {
		t.Error("conversation skipped by the failed run not imported on retry")
	}
	if v, _ := mem.GetPref(ctx, "active_conv_6"); v != "1700000000000-abc" {
		t.Errorf("active pointer = %q", v)
	}
	if v, _ := mem.GetPref(ctx, SchemaVersionKey); v != SchemaVersion {
		t.Error("schema version tag should be written after retry")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("legacy file should be deleted after the retry succeeds")
	}
}

func TestRunReadErrorRetries(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	// A directory at the legacy path makes ReadFile fail without the
	// not-exist shortcut.
	path := filepath.Join(t.TempDir(), "chats.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatalf("read error must not fail startup: %v", err)
	}
	if v, _ := mem.GetPref(ctx, SchemaVersionKey); v != "" {
		t.Fatalf("schema version must stay unset on a read error, got %q", v)
	}

	// Once readable, the next startup imports normally.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(legacyFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n, _ := mem.Count(ctx); n != 3 {
		t.Errorf("expected 3 conversations after retry, got %d", n)
	}
	if v, _ := mem.GetPref(ctx, SchemaVersionKey); v != SchemaVersion {
		t.Error("schema version tag should be written after retry")
	}
}

func TestRunNoLegacyFile(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	path := filepath.Join(t.TempDir(), "chats.json")

	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatal(err)
	}
	if n, _ := mem.Count(ctx); n != 0 {
		t.Errorf("expected no records, got %d", n)
	}
	if v, _ := mem.GetPref(ctx, SchemaVersionKey); v != SchemaVersion {
		t.Error("fresh store should be tagged with the current schema version")
	}
}

func TestRunMalformedLegacyFile(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	path := writeLegacy(t, "{not json")

	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatalf("malformed legacy file must not fail startup: %v", err)
	}
	if n, _ := mem.Count(ctx); n != 0 {
		t.Errorf("expected no records, got %d", n)
	}
}

func TestRunSkipsOnceVersionTagged(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if err := mem.SetPref(ctx, SchemaVersionKey, SchemaVersion); err != nil {
		t.Fatal(err)
	}
	path := writeLegacy(t, legacyFixture)

	if err := Run(ctx, mem, mem, path); err != nil {
		t.Fatal(err)
	}
	if n, _ := mem.Count(ctx); n != 0 {
		t.Errorf("version-tagged store must skip migration, got %d records", n)
	}
	// The legacy file stays untouched; a tagged store never looks at it.
	if _, err := os.Stat(path); err != nil {
		t.Error("legacy file should be left alone when version tag present")
	}
}
