package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"collabvc/internal/blobstore"
	"collabvc/internal/config"
	"collabvc/internal/models"
	"collabvc/internal/store"
	"collabvc/internal/versioning"
)

// seedFile is the YAML document accepted by `collabvc seed`.
type seedFile struct {
	Users      []seedUser      `yaml:"users"`
	Workspaces []seedWorkspace `yaml:"workspaces"`
}

type seedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type seedWorkspace struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Owner       string       `yaml:"owner"`
	Members     []seedMember `yaml:"members"`
	Files       []seedCommit `yaml:"files"`
}

type seedMember struct {
	Username string `yaml:"username"`
	Role     string `yaml:"role"`
}

// seedCommit is committed in file order, so repeated paths build a chain.
type seedCommit struct {
	Path        string `yaml:"path"`
	Author      string `yaml:"author"`
	Message     string `yaml:"message"`
	Content     string `yaml:"content"`
	ContentType string `yaml:"content_type"`
}

type seedResult struct {
	UsersCreated      int      `json:"users_created"`
	UsersSkipped      int      `json:"users_skipped"`
	WorkspacesCreated []string `json:"workspaces_created"`
	WorkspacesSkipped []string `json:"workspaces_skipped"`
	Versions          int      `json:"versions"`
}

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load users, workspaces and file versions from a YAML file",
		Args:  requireExactlyArgs(1, "seed file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadSeedFile(args[0])
			if err != nil {
				return err
			}

			return withLocalStore(cfg, func(st *store.Store, blobs blobstore.BlobStore) error {
				versions := versioning.NewService(st, blobs, versioningOptions(cfg, slog.Default()))
				result, err := applySeed(cmd.Context(), st, versions, doc)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(result)
				}
				return writePlain("users: %d created, %d skipped\nworkspaces: %d created, %d skipped\nversions: %d committed\n",
					result.UsersCreated, result.UsersSkipped, len(result.WorkspacesCreated), len(result.WorkspacesSkipped), result.Versions)
			})
		},
	}
}

func loadSeedFile(path string) (seedFile, error) {
	var doc seedFile
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// applySeed creates missing users, then each workspace whose id is not
// already taken along with its members and file history.
func applySeed(ctx context.Context, st store.Backend, versions *versioning.Service, doc seedFile) (seedResult, error) {
	result := seedResult{WorkspacesCreated: []string{}, WorkspacesSkipped: []string{}}
	now := time.Now().UTC()

	for _, u := range doc.Users {
		existing, err := st.GetUserByUsername(ctx, u.Username)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.UsersSkipped++
			continue
		}
		if _, err := provisionUser(ctx, st, u.Username, u.Password, now); err != nil {
			return result, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		result.UsersCreated++
	}

	for _, sw := range doc.Workspaces {
		if sw.ID != "" {
			exists, err := st.WorkspaceExists(ctx, sw.ID)
			if err != nil {
				return result, err
			}
			if exists {
				result.WorkspacesSkipped = append(result.WorkspacesSkipped, sw.ID)
				continue
			}
		}
		ws, committed, err := seedWorkspaceInto(ctx, st, versions, sw, now)
		if err != nil {
			return result, fmt.Errorf("seed workspace %q: %w", sw.Name, err)
		}
		result.WorkspacesCreated = append(result.WorkspacesCreated, ws.ID)
		result.Versions += committed
	}
	return result, nil
}

func seedWorkspaceInto(ctx context.Context, st store.Backend, versions *versioning.Service, sw seedWorkspace, now time.Time) (*models.Workspace, int, error) {
	owner, err := seedUserByName(ctx, st, sw.Owner)
	if err != nil {
		return nil, 0, err
	}
	ws := &models.Workspace{ID: sw.ID, Name: sw.Name, Description: sw.Description, OwnerID: owner.ID}
	if err := st.CreateWorkspace(ctx, ws); err != nil {
		return nil, 0, err
	}

	for _, m := range sw.Members {
		user, err := seedUserByName(ctx, st, m.Username)
		if err != nil {
			return nil, 0, err
		}
		role, err := models.ParseMemberRole(defaultString(m.Role, string(models.RoleEditor)))
		if err != nil {
			return nil, 0, err
		}
		if role == models.RoleOwner {
			return nil, 0, fmt.Errorf("member %s: a workspace has exactly one owner", m.Username)
		}
		err = st.UpsertMember(ctx, models.WorkspaceMember{WorkspaceID: ws.ID, UserID: user.ID, Role: role, JoinedAt: now})
		if err != nil {
			return nil, 0, err
		}
	}

	for i, f := range sw.Files {
		author := owner
		if f.Author != "" {
			if author, err = seedUserByName(ctx, st, f.Author); err != nil {
				return nil, i, err
			}
		}
		_, err = versions.Commit(ctx, versioning.CommitInput{
			WorkspaceID: ws.ID,
			FilePath:    f.Path,
			AuthorID:    author.ID,
			Message:     defaultString(f.Message, "Seeded "+f.Path),
			Content:     []byte(f.Content),
			ContentType: f.ContentType,
		})
		if err != nil {
			return nil, i, fmt.Errorf("commit %s: %w", f.Path, err)
		}
	}
	return ws, len(sw.Files), nil
}

func seedUserByName(ctx context.Context, st store.AuthStore, username string) (*store.AuthUser, error) {
	user, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q not found", username)
	}
	return user, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
