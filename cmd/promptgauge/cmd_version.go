package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptgauge/promptgauge/internal/output"
	"github.com/promptgauge/promptgauge/internal/store"
	"github.com/promptgauge/promptgauge/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage stored prompt versions",
	}
	cmd.AddCommand(
		newVersionSaveCmd(a),
		newVersionListCmd(a),
		newVersionLatestCmd(a),
		newVersionShowCmd(a),
		newVersionRollbackCmd(a),
		newVersionAnnotateCmd(a),
		newVersionAnnotationsCmd(a),
		newVersionDeleteCmd(a),
	)
	return cmd
}

// parseLabel maps the --label flag to a pre-release label.
func parseLabel(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stable":
		return version.LabelStable, nil
	case "snapshot":
		return version.LabelSnapshot, nil
	case "m", "milestone":
		return version.LabelMilestone, nil
	case "rc":
		return version.LabelRC, nil
	default:
		return "", fmt.Errorf("unknown label %q: use snapshot, milestone, rc, or stable", s)
	}
}

// promptText resolves a prompt flag that may carry inline text or, with a
// leading @, a file path.
func promptText(raw string) (string, error) {
	if !strings.HasPrefix(raw, "@") {
		return raw, nil
	}
	data, err := os.ReadFile(strings.TrimPrefix(raw, "@"))
	if err != nil {
		return "", fmt.Errorf("read prompt file: %w", err)
	}
	return string(data), nil
}

func newVersionSaveCmd(a *app) *cobra.Command {
	var systemPrompt, userPrompt, explicit, bump, label string
	var labelNumber int
	var overwrite bool
	var meta []string

	cmd := &cobra.Command{
		Use:   "save <prompt>",
		Short: "Save a new version of a prompt",
		Long: `Save a new version of a prompt.

Without --version the number is derived from the latest stored version
using --bump and --label; the first version of a prompt is 1.0.0. Prompt
texts are taken inline or from files with an @ prefix (--user @file.txt).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := promptText(systemPrompt)
			if err != nil {
				return err
			}
			usr, err := promptText(userPrompt)
			if err != nil {
				return err
			}
			if strings.TrimSpace(usr) == "" {
				return fmt.Errorf("--user prompt text is required")
			}

			metadata, err := parseKeyValues(meta)
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ver := explicit
			if ver == "" {
				lbl, err := parseLabel(label)
				if err != nil {
					return err
				}
				current := ""
				latest, err := s.LatestVersion(cmd.Context(), args[0])
				switch {
				case err == nil:
					current = latest.Version
				case !errors.Is(err, store.ErrNotFound):
					return err
				}
				ver = version.Next(current, version.Bump(bump), lbl, labelNumber)
			} else if _, err := version.Parse(explicit); err != nil {
				return err
			}

			entry := store.VersionEntry{
				Name:         args[0],
				Version:      ver,
				SystemPrompt: sys,
				UserPrompt:   usr,
			}
			if len(metadata) > 0 {
				entry.Metadata = map[string]any{}
				for k, v := range metadata {
					entry.Metadata[k] = v
				}
			}
			if err := s.SaveVersion(cmd.Context(), entry, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Saved %s@%s\n", args[0], ver)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&systemPrompt, "system", "", "system prompt text, or @path to a file")
	fs.StringVar(&userPrompt, "user", "", "user prompt template, or @path to a file")
	fs.StringVar(&explicit, "version", "", "explicit version number (overrides --bump/--label)")
	fs.StringVar(&bump, "bump", string(version.BumpPatch), "component to bump: major, minor, or patch")
	fs.StringVar(&label, "label", "stable", "pre-release label: snapshot, milestone, rc, or stable")
	fs.IntVar(&labelNumber, "label-number", 0, "pre-release number, as in 1.2.0-RC.2")
	fs.BoolVar(&overwrite, "overwrite", false, "replace the version if it already exists")
	fs.StringArrayVar(&meta, "meta", nil, "version metadata as key=value (repeatable)")
	return cmd
}

func newVersionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [prompt]",
		Short: "List stored prompts, or one prompt's versions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if len(args) == 0 {
				names, err := s.ListPrompts(cmd.Context())
				if err != nil {
					return err
				}
				if a.cfg.Output.JSON {
					return output.PrintJSON(a.stdout, names)
				}
				if len(names) == 0 {
					fmt.Fprintln(a.stdout, "No prompts stored.")
					return nil
				}
				for _, name := range names {
					fmt.Fprintln(a.stdout, name)
				}
				return nil
			}

			entries, err := s.ListVersions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(a.stdout, "Prompt %s has no versions.\n", args[0])
				return nil
			}
			for _, entry := range entries {
				count, err := s.RecordCount(cmd.Context(), entry.Name, entry.Version)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%-16s %s  records=%d\n",
					entry.Version, entry.CreatedAt.Format("2006-01-02 15:04"), count)
			}
			return nil
		},
	}
}

func newVersionLatestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "latest <prompt>",
		Short: "Show a prompt's highest version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.LatestVersion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, entry)
			}
			fmt.Fprintln(a.stdout, entry.Version)
			return nil
		},
	}
}

func newVersionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <prompt> [version]",
		Short: "Show a stored version's prompts and metadata",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			entry, err := a.resolveVersion(cmd, s, args[0], ver)
			if err != nil {
				return err
			}
			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, entry)
			}
			fmt.Fprintf(a.stdout, "%s@%s (created %s)\n", entry.Name, entry.Version,
				entry.CreatedAt.Format("2006-01-02 15:04"))
			if entry.SystemPrompt != "" {
				fmt.Fprintf(a.stdout, "\nSystem prompt:\n%s\n", entry.SystemPrompt)
			}
			fmt.Fprintf(a.stdout, "\nUser prompt:\n%s\n", entry.UserPrompt)
			if len(entry.Metadata) > 0 {
				fmt.Fprintln(a.stdout, "\nMetadata:")
				for k, v := range entry.Metadata {
					fmt.Fprintf(a.stdout, "  %s: %v\n", k, v)
				}
			}
			return nil
		},
	}
}

func newVersionRollbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <prompt> <version>",
		Short: "Create a new version carrying an older version's prompts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.Rollback(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Rolled back %s to %s as new version %s\n",
				args[0], args[1], entry.Version)
			return nil
		},
	}
}

func newVersionAnnotateCmd(a *app) *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "annotate <prompt> <version> <text>",
		Short: "Attach a note to a version",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := a.resolveVersion(cmd, s, args[0], args[1])
			if err != nil {
				return err
			}
			if author == "" {
				if u, err := user.Current(); err == nil {
					author = u.Username
				}
			}
			ann := store.Annotation{Text: args[2], Author: author}
			if err := s.Annotate(cmd.Context(), entry.Name, entry.Version, ann); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Annotated %s@%s\n", entry.Name, entry.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "note author (default current user)")
	return cmd
}

func newVersionAnnotationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "annotations <prompt> [version]",
		Short: "List a version's notes oldest-first",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			entry, err := a.resolveVersion(cmd, s, args[0], ver)
			if err != nil {
				return err
			}
			anns, err := s.Annotations(cmd.Context(), entry.Name, entry.Version)
			if err != nil {
				return err
			}
			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, anns)
			}
			if len(anns) == 0 {
				fmt.Fprintf(a.stdout, "%s@%s has no annotations.\n", entry.Name, entry.Version)
				return nil
			}
			for _, ann := range anns {
				fmt.Fprintf(a.stdout, "%s  %-12s %s\n",
					ann.CreatedAt.Format("2006-01-02 15:04"), ann.Author, ann.Text)
			}
			return nil
		},
	}
}

func newVersionDeleteCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <prompt> <version>",
		Short: "Delete a version with its records and annotations",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("deleting %s@%s removes its records and annotations; re-run with --force", args[0], args[1])
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteVersion(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted %s@%s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm the deletion")
	return cmd
}
