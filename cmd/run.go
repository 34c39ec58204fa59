package cmd

import (
	"fmt"
	"os"

	"github.com/abhisek/vidya/internal/app"
	"github.com/abhisek/vidya/internal/assistant"
	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/llm"
	"github.com/abhisek/vidya/internal/migrate"
	"github.com/abhisek/vidya/internal/store"
	"github.com/spf13/cobra"
)

// runApp opens the store, builds dependencies, and launches the TUI.
// If the database cannot be opened the app still starts, backed by an
// in-memory store, with a warning shown on the welcome screen.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()

	var (
		convs  chat.ConversationRepo
		prefs  chat.PrefsRepo
		sink   llm.EventSink
		notice string
	)

	dbPath, err := resolveDBPath(cmd)
	if err == nil {
		var st *store.Store
		st, err = store.OpenShared(dbPath)
		if err == nil {
			defer st.Close()
			convs = st.Conversations()
			prefs = st.Prefs()
			sink = st.Events()
			if merr := migrate.Run(ctx, convs, prefs, migrate.LegacyPath(dbPath)); merr != nil {
				fmt.Fprintln(os.Stderr, "warning: legacy import failed:", merr)
			}
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: storage unavailable:", err)
		mem := store.NewMemory()
		convs, prefs = mem, mem
		notice = "Storage unavailable. Chats will not be saved after you quit."
	}

	provider, err := llm.NewProviderFromEnv(ctx, sink)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Set GEMINI_API_KEY, OPENAI_API_KEY, ANTHROPIC_API_KEY, or OPENROUTER_API_KEY and try again.")
		return fmt.Errorf("no usable LLM provider")
	}

	session := chat.NewSession(convs, prefs)
	coord := assistant.NewCoordinator(session, provider)

	return app.Run(app.Options{
		Session:     session,
		Coordinator: coord,
		Provider:    provider,
		Notice:      notice,
	})
}
