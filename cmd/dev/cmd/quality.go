package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func TestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run unit tests, all of them or those of the selected packages",
		Example: `  dev test
  dev test --pkg sensor --pkg detect --race`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs, err := cmd.Flags().GetStringSlice("pkg")
			if err != nil {
				return fmt.Errorf("could not get pkg flag: %w", err)
			}
			race, err := cmd.Flags().GetBool("race")
			if err != nil {
				return fmt.Errorf("could not get race flag: %w", err)
			}
			if len(pkgs) == 0 && !race {
				if err := test.Test(); err != nil {
					return fmt.Errorf("failed to run tests: %w", err)
				}
				return nil
			}
			goArgs, err := goTestArgs(pkgs, race)
			if err != nil {
				return err
			}
			slog.Info("running go test", "args", goArgs)
			goTest := exec.CommandContext(cmd.Context(), "go", goArgs...)
			goTest.Stdout = os.Stdout
			goTest.Stderr = os.Stderr
			if err := goTest.Run(); err != nil {
				return fmt.Errorf("failed to run tests: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringSlice("pkg", nil, "package to test, e.g. sensor or detect (repeatable)")
	cmd.Flags().Bool("race", false, "enable the race detector, detection and notify run goroutines")
	return cmd
}

// goTestArgs builds the go test arguments for the selected packages, every
// package when none is selected.
func goTestArgs(pkgs []string, race bool) ([]string, error) {
	dirs, err := packageDirs(pkgs)
	if err != nil {
		return nil, err
	}
	args := []string{"test", "-count=1"}
	if race {
		args = append(args, "-race")
	}
	if len(dirs) == 0 {
		return append(args, "./..."), nil
	}
	for _, d := range dirs {
		args = append(args, "./"+d+"/...")
	}
	return args, nil
}

func LintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Lint the vdec module",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Lint(); err != nil {
				return fmt.Errorf("failed to run linting: %w", err)
			}
			return nil
		},
	}
	return cmd
}

func IntegrationTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration-test",
		Short: "Run integration tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Integ(); err != nil {
				return fmt.Errorf("failed to run integration testing: %w", err)
			}
			return nil
		},
	}
	return cmd
}
