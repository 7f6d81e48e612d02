package cli

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/evidencevault/internal/client/client"
	"github.com/dmitrijs2005/evidencevault/internal/client/models"
	"github.com/dmitrijs2005/evidencevault/internal/filex"
	"github.com/dmitrijs2005/evidencevault/internal/server/auth"
	"github.com/spf13/cobra"
)

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", what, s)
	}
	return id, nil
}

func (a *App) uploadCommand() *cobra.Command {
	var (
		caseID      int64
		evidenceID  int64
		title       string
		description string
		device      string
		mimeType    string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file as new evidence or as a new version of existing evidence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := checkSize(info.Size()); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			name := filepath.Base(path)
			if title == "" {
				title = strings.TrimSuffix(name, filepath.Ext(name))
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
			}

			u := models.Upload{
				CaseID:      caseID,
				Title:       title,
				Description: description,
				DeviceInfo:  device,
				FileName:    name,
				MimeType:    mimeType,
				Content:     content,
			}
			if evidenceID > 0 {
				u.ExistingEvidenceID = &evidenceID
			}

			api, err := a.api(true)
			if err != nil {
				return err
			}
			res, err := api.Upload(cmd.Context(), u)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return a.printJSON(res)
			}
			fmt.Fprintf(a.out, "evidence %d version %d (id %d)\n", res.EvidenceID, res.VersionNumber, res.EvidenceVersionID)
			fmt.Fprintf(a.out, "  sha256 %s\n  md5    %s\n", res.SHA256, res.MD5)
			return nil
		},
	}

	f := cmd.Flags()
	f.Int64Var(&caseID, "case", 0, "case id (required)")
	f.Int64Var(&evidenceID, "evidence", 0, "existing evidence id to add a version to")
	f.StringVar(&title, "title", "", "evidence title (default: file name without extension)")
	f.StringVar(&description, "description", "", "evidence description")
	f.StringVar(&device, "device", "", "acquisition device (server default \"Unknown\")")
	f.StringVar(&mimeType, "mime", "", "MIME type (default: guessed from extension)")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func (a *App) listCommand() *cobra.Command {
	var caseID int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List evidence of a case",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api(true)
			if err != nil {
				return err
			}
			items, err := api.ListByCase(cmd.Context(), caseID)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(items)
			}
			if len(items) == 0 {
				fmt.Fprintln(a.out, "no evidence")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EVIDENCE\tVERSION\tID\tFILE\tSIZE\tSHA256\tUPLOADED")
			for _, ev := range items {
				fmt.Fprintf(tw, "%d %s\t\t\t\t\t\t\n", ev.ID, ev.Title)
				for _, v := range ev.Versions {
					fmt.Fprintf(tw, "\tv%d\t%d\t%s\t%d\t%s\t%s\n",
						v.VersionNumber, v.ID, v.OriginalFileName, v.FileSizeBytes,
						shortHash(v.SHA256), v.UploadedAt.Format(time.RFC3339))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64Var(&caseID, "case", 0, "case id (required)")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func (a *App) downloadCommand() *cobra.Command {
	var (
		accessType string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "download <version-id>",
		Short: "Download a version; the access is recorded in the chain of custody",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versionID, err := parseID(args[0], "version id")
			if err != nil {
				return err
			}
			toStdout := output == "" || output == "-"
			if toStdout && writesToTerminal(a.out) {
				return errors.New("refusing to write evidence to a terminal; use --output")
			}

			api, err := a.api(true)
			if err != nil {
				return err
			}

			if toStdout {
				d, err := api.Download(cmd.Context(), versionID, accessType)
				if err != nil {
					return err
				}
				_, err = a.out.Write(d.Content)
				return err
			}

			// Check first so an existing file never costs an access record.
			exists, err := filex.Exists(output)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%s already exists", output)
			}
			d, err := api.Download(cmd.Context(), versionID, accessType)
			if err != nil {
				return err
			}
			if err := filex.WriteExclusive(output, d.Content, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "wrote %d bytes to %s (sha256 %s verified)\n", len(d.Content), output, d.SHA256)
			return nil
		},
	}

	cmd.Flags().StringVar(&accessType, "access-type", "Download", "access type recorded by the server: View, Download or Analysis")
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file; \"-\" writes to stdout")
	return cmd
}

func (a *App) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <sha256|md5>",
		Short: "Find versions by content digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api(true)
			if err != nil {
				return err
			}
			matches, err := api.SearchByHash(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(a.out, "no matches")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CASE\tEVIDENCE\tVERSION\tID\tFILE")
			for _, m := range matches {
				fmt.Fprintf(tw, "%d\t%d\tv%d\t%d\t%s\n", m.CaseID, m.EvidenceID, m.VersionNumber, m.EvidenceVersionID, m.OriginalFileName)
			}
			return tw.Flush()
		},
	}
}

func (a *App) accessLogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "access-log <version-id>",
		Short: "Show the chain of custody of a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versionID, err := parseID(args[0], "version id")
			if err != nil {
				return err
			}
			api, err := a.api(true)
			if err != nil {
				return err
			}
			rows, err := api.AccessLog(cmd.Context(), versionID)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(a.out, "no accesses recorded")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tUSER\tTYPE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.AccessedAt.Format(time.RFC3339), r.AccessedByUserID, r.AccessType)
			}
			return tw.Flush()
		},
	}
}

func (a *App) pingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server and its database are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.api(false)
			if err != nil {
				return err
			}
			if err := api.Ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "ok")
			return nil
		},
	}
}

func (a *App) devTokenCommand() *cobra.Command {
	var (
		secret string
		userID string
		name   string
		roles  []string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Mint an HS256 bearer token for development servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range roles {
				if _, ok := auth.ParseRole(r); !ok {
					return fmt.Errorf("unknown role %q", r)
				}
			}
			parsed := auth.ParseRoles(roles)
			token, err := auth.GenerateToken(userID, name, parsed, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&secret, "secret", "", "server JWT secret (required)")
	f.StringVar(&userID, "user", "dev-user", "subject (user id)")
	f.StringVar(&name, "name", "Developer", "display name")
	f.StringSliceVar(&roles, "roles", []string{auth.RoleInvestigator.String()}, "comma-separated roles")
	f.DurationVar(&ttl, "ttl", time.Hour, "token validity")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

var _ API = (*client.HTTPClient)(nil)
