package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"

	"github.com/spf13/cobra"

	"collabvc/internal/api"
	"collabvc/internal/config"
)

func newCommitCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		message     string
		sourceFile  string
		fromStdin   bool
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "commit <workspace> <path>",
		Short: "Commit new content as the next version of a file",
		Args:  requireWorkspaceAndPath,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceID, filePath := args[0], args[1]
			content, err := readCommitContent(sourceFile, fromStdin, cmd.InOrStdin(), cfg.Versioning.MaxContentBytes)
			if err != nil {
				return err
			}
			if contentType == "" {
				contentType = guessContentType(filePath)
			}

			return withClient(cfg, func(client *api.Client) error {
				rec, err := client.Commit(cmd.Context(), workspaceID, api.NewCommitRequest(filePath, message, content, contentType))
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(rec)
				}
				if rec.ParentVersionID == "" {
					return writePlain("committed %s %s (new file)\n", rec.VersionID, rec.FilePath)
				}
				return writePlain("committed %s %s (parent %s)\n", rec.VersionID, rec.FilePath, rec.ParentVersionID)
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message (required)")
	cmd.Flags().StringVarP(&sourceFile, "file", "f", "", "read content from a local file")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read content from stdin")
	cmd.Flags().StringVar(&contentType, "content-type", "", "media type (default: guessed from the path)")
	_ = cmd.MarkFlagRequired("message")
	cmd.MarkFlagsMutuallyExclusive("file", "stdin")
	cmd.MarkFlagsOneRequired("file", "stdin")
	return cmd
}

// readCommitContent reads at most maxBytes+1 bytes so oversize input is
// rejected locally before it is uploaded.
func readCommitContent(sourceFile string, fromStdin bool, stdin io.Reader, maxBytes int64) ([]byte, error) {
	var r io.Reader
	switch {
	case sourceFile != "" && fromStdin:
		return nil, errors.New("use either --file or --stdin, not both")
	case sourceFile != "":
		f, err := os.Open(sourceFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	case fromStdin:
		r = stdin
	default:
		return nil, errors.New("content is required: pass --file or --stdin")
	}

	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxContentBytes
	}
	content, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("content exceeds %d bytes", maxBytes)
	}
	return content, nil
}

func guessContentType(filePath string) string {
	return mime.TypeByExtension(path.Ext(filePath))
}
