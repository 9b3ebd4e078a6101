package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the ask API request.
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// AskSource represents a cited context document in an answer.
type AskSource struct {
	DocumentID string   `json:"document_id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Relevance  *float32 `json:"relevance,omitempty"`
}

// AskResponse represents the ask API response.
type AskResponse struct {
	Answer         string      `json:"answer"`
	Sources        []AskSource `json:"sources"`
	ConversationID string      `json:"conversation_id,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a campus safety question",
		Long: `Ask a question and get an answer grounded in indexed safety documents.

Examples:
  # Ask a one-off question
  sentra ask "What should I do during a lockdown?"

  # Continue an existing conversation
  sentra ask "What about fire drills?" --conversation <conversation_id>`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(strings.Join(args, " "), conversationID, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID to continue")

	return cmd
}

func runAsk(question, conversationID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Post("/ask", AskRequest{
		Question:       question,
		ConversationID: conversationID,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var answer AskResponse
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answer.Answer)

	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, source := range answer.Sources {
			if source.Relevance != nil {
				fmt.Printf("  [%d] %s (%s, %.0f%% relevant)\n", i+1, source.Title, source.Category, *source.Relevance*100)
			} else {
				fmt.Printf("  [%d] %s (%s)\n", i+1, source.Title, source.Category)
			}
		}
	}

	if answer.ConversationID != "" {
		fmt.Printf("\nConversation: %s\n", answer.ConversationID)
	}

	return nil
}
