// Package migrate converts the legacy flat-JSON chat blob into the
// current per-record store. The legacy format is a single chats.json
// file next to the database holding every conversation for every class.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/abhisek/vidya/internal/chat"
)

// SchemaVersion is written to prefs after a successful migration (or on a
// fresh store). Its presence means the store is already in the current
// schema and the legacy blob must not be re-imported.
const SchemaVersion = "2"

// SchemaVersionKey is the prefs key holding the schema version tag.
const SchemaVersionKey = "schema_version"

// legacyBlob mirrors the old chats.json layout:
// class number → conversation id → message list, plus the per-class
// active conversation pointer.
type legacyBlob struct {
	Chats  map[string]map[string][]legacyMessage `json:"chats"`
	Active map[string]string                     `json:"active"`
}

type legacyMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// LegacyPath returns the expected location of the legacy blob, which
// lives next to the database file.
func LegacyPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "chats.json")
}

// Run performs the one-time legacy migration. It is idempotent:
//   - If the schema version tag is already set, nothing happens.
//   - If no legacy file exists, the tag is written and nothing else happens.
//   - Otherwise every legacy conversation whose id is not already stored is
//     imported, the tag is written, and the legacy file is deleted.
//
// Read, import, and tag-write failures log a warning and leave both the
// legacy file and the tag untouched so a later startup retries; the rerun
// skips ids imported before the failure. These failures never fail the
// caller. Only a malformed legacy file is discarded outright.
func Run(ctx context.Context, convs chat.ConversationRepo, prefs chat.PrefsRepo, legacyPath string) error {
	version, err := prefs.GetPref(ctx, SchemaVersionKey)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version == SchemaVersion {
		return nil
	}

	data, err := os.ReadFile(legacyPath)
	if os.IsNotExist(err) {
		return prefs.SetPref(ctx, SchemaVersionKey, SchemaVersion)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot read legacy chat file, will retry on next start: %v\n", err)
		return nil
	}

	var blob legacyBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		fmt.Fprintf(os.Stderr, "warning: legacy chat file is malformed, skipping migration: %v\n", err)
		removeLegacy(legacyPath)
		return prefs.SetPref(ctx, SchemaVersionKey, SchemaVersion)
	}

	if err := importBlob(ctx, convs, prefs, blob); err != nil {
		fmt.Fprintf(os.Stderr, "warning: legacy migration failed, will retry on next start: %v\n", err)
		return nil
	}

	if err := prefs.SetPref(ctx, SchemaVersionKey, SchemaVersion); err != nil {
		fmt.Fprintf(os.Stderr, "warning: legacy migration failed, will retry on next start: %v\n", err)
		return nil
	}
	removeLegacy(legacyPath)
	return nil
}

func importBlob(ctx context.Context, convs chat.ConversationRepo, prefs chat.PrefsRepo, blob legacyBlob) error {
	for _, classKey := range sortedKeys(blob.Chats) {
		classNum, err := strconv.Atoi(classKey)
		if err != nil || !chat.Class(classNum).Valid() {
			continue
		}
		class := chat.Class(classNum)

		byID := blob.Chats[classKey]
		for _, id := range sortedKeys(byID) {
			existing, err := convs.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("check conversation %s: %w", id, err)
			}
			if existing != nil {
				// Already imported by an earlier, partially failed run.
				continue
			}
			createdAt, ok := chat.CreatedAtFromID(id)
			if !ok {
				createdAt = time.Now()
			}
			conv := &chat.Conversation{
				ID:        id,
				Class:     class,
				Title:     "",
				Messages:  convertMessages(byID[id]),
				CreatedAt: createdAt,
			}
			if _, err := convs.Add(ctx, conv); err != nil {
				return fmt.Errorf("import conversation %s: %w", id, err)
			}
		}

		if activeID, ok := blob.Active[classKey]; ok {
			key := fmt.Sprintf("active_conv_%d", class)
			if err := prefs.SetPref(ctx, key, activeID); err != nil {
				return fmt.Errorf("import active pointer for class %d: %w", class, err)
			}
		}
	}
	return nil
}

func convertMessages(legacy []legacyMessage) []chat.Message {
	msgs := make([]chat.Message, 0, len(legacy))
	for _, m := range legacy {
		role := chat.RoleModel
		if m.Role == "user" {
			role = chat.RoleUser
		}
		msgs = append(msgs, chat.Message{Role: role, Text: m.Text})
	}
	return msgs
}

func removeLegacy(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: cannot remove legacy chat file: %v\n", err)
	}
}

func sortedKeys[M map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
