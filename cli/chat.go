package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shopassist/domain"
)

func printMessage(m domain.ChatMessage) {
	fmt.Printf("[%s] assistant: %s\n", m.Timestamp.Format("15:04"), m.Text)
	printProducts(m.Products)
}

func init() {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the shopping assistant",
	}

	sendCmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := assistant()
			if a.SessionID() == "" {
				if _, err := a.Mount(cmd.Context()); err != nil {
					return err
				}
			}
			reply, err := a.Send(cmd.Context(), strings.Join(args, " "))
			if reply.ID != "" {
				printMessage(reply)
			}
			return err
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the conversation, keeping the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := assistant()
			if err := a.Reset(cmd.Context()); err != nil {
				return err
			}
			for _, m := range a.Messages() {
				printMessage(m)
			}
			return nil
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the server-side history of this session",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := assistant().History(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range h.Messages {
				fmt.Printf("%s | you: %s\n", e.Timestamp, e.Message)
				fmt.Printf("%s | assistant (%s): %s\n", e.Timestamp, e.MessageType, e.Response)
			}
			return nil
		},
	}

	var sessionsOutput string
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List chat sessions known to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := assistant().Sessions(cmd.Context())
			if err != nil {
				return err
			}
			if sessionsOutput == "json" {
				printJSON(sessions)
				return nil
			}
			for _, s := range sessions {
				fmt.Printf("%s | %d messages | updated %s\n", s.SessionID, s.MessageCount, s.UpdatedAt)
			}
			return nil
		},
	}
	sessionsCmd.Flags().StringVar(&sessionsOutput, "output", "", "output format")

	chatCmd.AddCommand(sendCmd, resetCmd, historyCmd, sessionsCmd)
	rootCmd.AddCommand(chatCmd)

	// session
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the persisted chat session id",
	}
	sessionShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the chat session id",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := sessionStore.Get(cmd.Context(), domain.KeyChatSessionID)
			if err != nil {
				if domain.IsKeyNotFoundError(err) {
					fmt.Println("no chat session")
					return nil
				}
				return err
			}
			fmt.Println(sid)
			return nil
		},
	}
	sessionClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the chat session id; the next chat starts a new one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := assistant().ClearSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("cleared")
			return nil
		},
	}
	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}
