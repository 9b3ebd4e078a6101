package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Conversation represents a conversation from the API.
type Conversation struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	LastMessage string `json:"last_message"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ConversationListResponse represents the conversation list API response.
type ConversationListResponse struct {
	Items   []Conversation `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

// Message represents a single conversation turn from the API.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// MessageListResponse represents the message list API response.
type MessageListResponse struct {
	Items []Message `json:"items"`
}

// ConversationsCmd creates the conversations command group.
func ConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Short:   "Manage conversations",
		Long:    "List conversations, show their messages, and delete them.",
		Aliases: []string{"conv"},
	}

	cmd.AddCommand(ConversationsListCmd())
	cmd.AddCommand(ConversationsMessagesCmd())
	cmd.AddCommand(ConversationsDeleteCmd())

	return cmd
}

// ConversationsListCmd creates the conversations list command.
func ConversationsListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runConversationsList(limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runConversationsList(limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/conversations?limit=%d", limit)
	if cursor != "" {
		path += "&cursor=" + cursor
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var list ConversationListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Items) == 0 {
		fmt.Println("No conversations found")
		return nil
	}

	for _, conv := range list.Items {
		fmt.Printf("  %s: %s (updated: %s)\n", conv.ID, conv.Title, conv.UpdatedAt)
		if conv.LastMessage != "" {
			fmt.Printf("    %s\n", conv.LastMessage)
		}
	}
	if list.HasMore && list.Cursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", list.Cursor)
	}

	return nil
}

// ConversationsMessagesCmd creates the conversations messages command.
func ConversationsMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages <conversation_id>",
		Short: "Show the messages in a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runConversationsMessages(args[0], outputJSON)
		},
	}

	return cmd
}

func runConversationsMessages(conversationID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/conversations/%s/messages", conversationID))
	if err != nil {
		return fmt.Errorf("failed to get messages: %w", err)
	}

	var list MessageListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Items) == 0 {
		fmt.Println("No messages found")
		return nil
	}

	for _, msg := range list.Items {
		fmt.Printf("[%s] %s\n", msg.Role, msg.CreatedAt)
		fmt.Println(msg.Content)
		fmt.Println()
	}

	return nil
}

// ConversationsDeleteCmd creates the conversations delete command.
func ConversationsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <conversation_id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runConversationsDelete(args[0], outputJSON)
		},
	}

	return cmd
}

func runConversationsDelete(conversationID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/conversations/%s", conversationID)); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	if outputJSON {
		data := map[string]interface{}{
			"id":      conversationID,
			"deleted": true,
		}
		output, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Conversation %s deleted\n", conversationID)
	}

	return nil
}
