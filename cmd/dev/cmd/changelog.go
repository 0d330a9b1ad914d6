package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

type changelogOpts struct {
	output string
	next   string
	tag    string
	pkgs   []string
}

func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate CHANGELOG.md from conventional commits",
		Long: `Generate CHANGELOG.md with git-chglog from commits of the form
  <type>[optional scope]: <description>

Scopes name the vdec package the commit touches, e.g. "fix(sensor): ...".
--pkg narrows the log to commits touching the given packages.`,
		Example: `  dev changelog
  dev changelog --next v0.3.0
  dev changelog --tag v0.2.0 --pkg sensor --pkg detect`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts changelogOpts
			var err error
			if opts.output, err = cmd.Flags().GetString("output"); err != nil {
				return fmt.Errorf("could not get output flag: %w", err)
			}
			if opts.next, err = cmd.Flags().GetString("next"); err != nil {
				return fmt.Errorf("could not get next flag: %w", err)
			}
			if opts.tag, err = cmd.Flags().GetString("tag"); err != nil {
				return fmt.Errorf("could not get tag flag: %w", err)
			}
			if opts.pkgs, err = cmd.Flags().GetStringSlice("pkg"); err != nil {
				return fmt.Errorf("could not get pkg flag: %w", err)
			}
			if _, err := exec.LookPath("git-chglog"); err != nil {
				slog.Error("git-chglog not found, install it with: go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest")
				return fmt.Errorf("git-chglog not installed: %w", err)
			}
			chglogArgs, err := changelogArgs(opts)
			if err != nil {
				return err
			}
			slog.Info("running git-chglog", "args", chglogArgs)
			chglog := exec.CommandContext(cmd.Context(), "git-chglog", chglogArgs...)
			chglog.Stdout = os.Stdout
			chglog.Stderr = os.Stderr
			if err := chglog.Run(); err != nil {
				return fmt.Errorf("failed to generate changelog: %w", err)
			}
			slog.Info("changelog generated", "output", opts.output)
			return nil
		},
	}

	cmd.Flags().String("next", "", "next version tag, e.g. v0.3.0")
	cmd.Flags().String("output", "CHANGELOG.md", "output file path")
	cmd.Flags().String("tag", "", "generate the changelog of a single tag")
	cmd.Flags().StringSlice("pkg", nil, "only commits touching this package (repeatable)")

	return cmd
}

func changelogArgs(opts changelogOpts) ([]string, error) {
	dirs, err := packageDirs(opts.pkgs)
	if err != nil {
		return nil, err
	}
	if opts.output == "" {
		opts.output = "CHANGELOG.md"
	}
	args := []string{"--output", opts.output}
	if opts.next != "" {
		args = append(args, "--next-tag", opts.next)
	}
	for _, d := range dirs {
		args = append(args, "--path", d)
	}
	if opts.tag != "" {
		args = append(args, opts.tag)
	}
	return args, nil
}
