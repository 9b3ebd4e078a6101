package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// CreateDocumentRequest represents the create document API request.
type CreateDocumentRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category,omitempty"`
	Visible  *bool  `json:"visible,omitempty"`
}

// UpdateDocumentRequest represents the update document API request.
type UpdateDocumentRequest struct {
	Title    *string `json:"title,omitempty"`
	Category *string `json:"category,omitempty"`
	Visible  *bool   `json:"visible,omitempty"`
}

// Document represents a document from the API.
type Document struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Body       string `json:"body,omitempty"`
	Category   string `json:"category"`
	Visible    bool   `json:"visible"`
	ChunkCount int    `json:"chunk_count"`
	SourceKey  string `json:"source_key,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// IngestResponse represents the document ingestion API response.
type IngestResponse struct {
	Document     Document `json:"document"`
	ChunkCount   int      `json:"chunk_count"`
	PendingEmbed []string `json:"pending_embed,omitempty"`
}

// DocumentListResponse represents the document list API response.
type DocumentListResponse struct {
	Items   []Document `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		file     string
		title    string
		category string
		hidden   bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a document from stdin or file",
		Long: `Add a safety document from a text file or stdin.

Examples:
  # Add from a file
  sentra add --file lockdown-procedure.md --title "Lockdown Procedure" --category emergency

  # Add from stdin
  cat policy.txt | sentra add --title "Visitor Policy" --category policy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAdd(file, title, category, hidden, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (reads stdin if omitted)")
	cmd.Flags().StringVar(&title, "title", "", "Document title (required)")
	cmd.Flags().StringVarP(&category, "category", "t", "", "Document category (emergency, policy, procedure, contact, general)")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Exclude the document from retrieval")
	cmd.MarkFlagRequired("title")

	return cmd
}

func runAdd(file, title, category string, hidden bool, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	var body []byte
	if file != "" {
		body, err = os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
	} else {
		body, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("document body is empty")
	}

	req := CreateDocumentRequest{
		Title:    title,
		Body:     string(body),
		Category: category,
	}
	if hidden {
		visible := false
		req.Visible = &visible
	}

	resp, err := api.Post("/documents", req)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	return printIngestResult(resp, outputJSON)
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var (
		title    string
		category string
		hidden   bool
	)

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a source file as a document",
		Long: `Upload a PDF, Word, or text file. The server extracts the text,
archives the original, and indexes the content.

Examples:
  sentra upload evacuation-plan.pdf --category emergency
  sentra upload handbook.docx --title "Student Handbook"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(args[0], title, category, hidden, outputJSON)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title (defaults to the filename)")
	cmd.Flags().StringVarP(&category, "category", "t", "", "Document category (emergency, policy, procedure, contact, general)")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Exclude the document from retrieval")

	return cmd
}

func runUpload(path, title, category string, hidden bool, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	fields := map[string]string{
		"title":    title,
		"category": category,
	}
	if hidden {
		fields["visible"] = "false"
	}

	resp, err := api.PostFile("/documents/upload", path, fields)
	if err != nil {
		return fmt.Errorf("failed to upload document: %w", err)
	}

	return printIngestResult(resp, outputJSON)
}

func printIngestResult(resp *APIResponse, outputJSON bool) error {
	var result IngestResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Document indexed: %s (%s)\n", result.Document.Title, result.Document.ID)
	if result.ChunkCount > 0 {
		fmt.Printf("Chunks: %d\n", result.ChunkCount)
	}
	if len(result.PendingEmbed) > 0 {
		fmt.Printf("Pending embeddings: %d (will be repaired in the background)\n", len(result.PendingEmbed))
	}

	return nil
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Long:  "Lists metadata for your indexed documents.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/documents?limit=%d", limit)
	if cursor != "" {
		path += "&cursor=" + cursor
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	var list DocumentListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Items) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	for _, doc := range list.Items {
		visibility := ""
		if !doc.Visible {
			visibility = ", hidden"
		}
		fmt.Printf("  %s: %s (%s%s, updated: %s)\n", doc.ID, doc.Title, doc.Category, visibility, doc.UpdatedAt)
	}
	if list.HasMore && list.Cursor != "" {
		fmt.Printf("\nMore results available. Use --cursor %s\n", list.Cursor)
	}

	return nil
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <document_id>",
		Short:   "Get a document by ID",
		Long:    "Retrieves a document by its ID and displays the full content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(documentID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/documents/%s", documentID))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Title: %s\n", doc.Title)
	fmt.Printf("Category: %s\n", doc.Category)
	fmt.Printf("Visible: %t\n", doc.Visible)
	if doc.ChunkCount > 0 {
		fmt.Printf("Chunks: %d\n", doc.ChunkCount)
	}
	fmt.Printf("Created: %s\n", doc.CreatedAt)
	fmt.Printf("Updated: %s\n", doc.UpdatedAt)
	fmt.Println()
	fmt.Println("--- Content ---")
	fmt.Println(doc.Body)

	return nil
}

// UpdateCmd creates the update command.
func UpdateCmd() *cobra.Command {
	var (
		title    string
		category string
		visible  string
	)

	cmd := &cobra.Command{
		Use:   "update <document_id>",
		Short: "Update document metadata",
		Long:  "Updates the title, category, or visibility of a document.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpdate(args[0], title, category, visible, outputJSON)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&category, "category", "t", "", "New category")
	cmd.Flags().StringVar(&visible, "visible", "", "Set visibility (true or false)")

	return cmd
}

func runUpdate(documentID, title, category, visible string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	var req UpdateDocumentRequest
	if title != "" {
		req.Title = &title
	}
	if category != "" {
		req.Category = &category
	}
	if visible != "" {
		if visible != "true" && visible != "false" {
			return fmt.Errorf("--visible must be true or false")
		}
		v := visible == "true"
		req.Visible = &v
	}

	if req.Title == nil && req.Category == nil && req.Visible == nil {
		return fmt.Errorf("nothing to update (set --title, --category, or --visible)")
	}

	resp, err := api.Patch(fmt.Sprintf("/documents/%s", documentID), req)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Document updated: %s (%s)\n", doc.Title, doc.ID)
	}

	return nil
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document_id>",
		Short: "Delete a document",
		Long:  "Deletes a document, its chunks, and any archived source file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(args[0], outputJSON)
		},
	}

	return cmd
}

func runDelete(documentID string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/documents/%s", documentID)); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if outputJSON {
		data := map[string]interface{}{
			"id":      documentID,
			"deleted": true,
		}
		output, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Document %s deleted\n", documentID)
	}

	return nil
}
