package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/store"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete saved conversations",
	Long:  "Delete saved conversations for one class or for all classes. Preferences for the affected classes are cleared too.",
	RunE: func(cmd *cobra.Command, args []string) error {
		classNum, _ := cmd.Flags().GetInt("class")
		yes, _ := cmd.Flags().GetBool("yes")

		classes := chat.AllClasses
		if classNum != 0 {
			c := chat.Class(classNum)
			if !c.Valid() {
				return fmt.Errorf("invalid class %d (valid: 6-12, 13=JEE, 14=NEET)", classNum)
			}
			classes = []chat.Class{c}
		}

		if !yes && !confirmReset(classes) {
			fmt.Println("Aborted.")
			return nil
		}

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		ctx := context.Background()
		deleted := 0
		for _, class := range classes {
			convs, err := s.Conversations().ListByClass(ctx, class)
			if err != nil {
				return fmt.Errorf("list conversations: %w", err)
			}
			for _, conv := range convs {
				if err := s.Conversations().Delete(ctx, conv.ID); err != nil {
					return fmt.Errorf("delete conversation %s: %w", conv.ID, err)
				}
				deleted++
			}
			if err := s.Prefs().DeletePref(ctx, fmt.Sprintf("active_conv_%d", class)); err != nil {
				return fmt.Errorf("clear preferences: %w", err)
			}
		}

		fmt.Printf("Deleted %d conversation(s).\n", deleted)
		return nil
	},
}

func confirmReset(classes []chat.Class) bool {
	if len(classes) == 1 {
		fmt.Printf("Delete all chats for %s? [y/N] ", classes[0].Label())
	} else {
		fmt.Print("Delete all chats for every class? [y/N] ")
	}
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	resetCmd.Flags().Int("class", 0, "Only reset one class (6-12, 13=JEE, 14=NEET)")
	resetCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
