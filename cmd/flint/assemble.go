package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aikinexis/flint/internal/assemble"
)

var (
	cursorOffset     int
	selectionEnd     int
	localWindow      int
	relatedSections  int
	maxSectionLength int
	outputJSON       bool
)

var assembleCmd = &cobra.Command{
	Use:   "assemble [file]",
	Short: "Assemble context for a cursor position in a document",
	Long: `Assemble a budgeted context block around a cursor position in a document
read from a file or stdin, and print the formatted prompt (or the raw
bundle as JSON).

Examples:
  # Context around byte offset 1200 of draft.md
  flint assemble --cursor 1200 draft.md

  # From stdin, JSON output
  cat draft.md | flint assemble --cursor 1200 --json -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAssemble,
}

func init() {
	assembleCmd.Flags().IntVar(&cursorOffset, "cursor", 0, "cursor byte offset in the document")
	assembleCmd.Flags().IntVar(&selectionEnd, "selection-end", -1, "selection end offset (turns the cursor into a range)")
	assembleCmd.Flags().IntVar(&localWindow, "window", 0, "local window size in characters")
	assembleCmd.Flags().IntVar(&relatedSections, "sections", 0, "maximum related sections")
	assembleCmd.Flags().IntVar(&maxSectionLength, "section-length", 0, "per-section character budget")
	assembleCmd.Flags().BoolVar(&outputJSON, "json", false, "print the raw context bundle as JSON")
}

func runAssemble(cmd *cobra.Command, args []string) error {
	var (
		document []byte
		err      error
	)
	if len(args) == 0 || args[0] == "-" {
		document, err = io.ReadAll(os.Stdin)
	} else {
		document, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	opts := assemble.DefaultOptions()
	if localWindow > 0 {
		opts.LocalWindow = localWindow
	}
	if relatedSections > 0 {
		opts.MaxRelatedSections = relatedSections
	}
	if maxSectionLength > 0 {
		opts.MaxSectionLength = maxSectionLength
	}

	end := cursorOffset
	if selectionEnd >= 0 {
		end = selectionEnd
	}
	bundle := assemble.AssembleRange(string(document), cursorOffset, end, opts)

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(bundle)
	}
	fmt.Println(assemble.FormatPrompt(bundle))
	return nil
}
