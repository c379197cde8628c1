package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/y-hirakaw/cchook/internal/config"
	"github.com/y-hirakaw/cchook/internal/errors"
	"github.com/y-hirakaw/cchook/internal/hooks"
	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/templates"
)

func (a *App) newGenerateCommand() *cobra.Command {
	generate := &cobra.Command{
		Use:     "generate",
		Short:   "Generate settings.json or CLAUDE.md templates",
		GroupID: groupTools,
	}

	generate.AddCommand(
		&cobra.Command{
			Use:   "settings <project_type>",
			Short: "Print settings.json for a project type (node, python, rust, ...)",
			Args:  requireArgs(1, 1, "project_type", "generate settings"),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := templates.RenderSettings(args[0])
				if err != nil {
					return err
				}
				_, err = a.Stdout.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "claude-md <target_dir> [project_type]",
			Short: "Print CLAUDE.md for a project directory",
			Args:  requireArgs(1, 2, "target_dir", "generate claude-md"),
			RunE: func(cmd *cobra.Command, args []string) error {
				dir := args[0]
				projectType := templates.ProjectTypeAuto
				if len(args) > 1 {
					projectType = args[1]
				}

				if info, err := os.Stat(dir); err != nil || !info.IsDir() {
					return errors.ProjectDirNotFound(dir)
				}
				content, err := templates.GenerateClaudeMD(dir, projectType)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(a.Stdout, content)
				return err
			},
		},
	)
	return generate
}

// requireArgs は引数の数を検証し、不足時はMissingArgumentを返す
func requireArgs(min, max int, name, command string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min {
			return errors.MissingArgument(name, command)
		}
		if len(args) > max {
			return cobra.RangeArgs(min, max)(cmd, args)
		}
		return nil
	}
}

type setupOptions struct {
	user        bool
	remove      bool
	status      bool
	restore     bool
	projectType string
}

func (a *App) newSetupCommand() *cobra.Command {
	opts := &setupOptions{}
	cmd := &cobra.Command{
		Use:     "setup",
		Short:   "Install, remove, restore or inspect cchook hooks in .claude/settings.json",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSetup(opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.user, "user", false, "use ~/.claude/settings.json instead of the project settings")
	flags.BoolVar(&opts.remove, "remove", false, "remove cchook hooks")
	flags.BoolVar(&opts.status, "status", false, "show the current hook status")
	flags.BoolVar(&opts.restore, "restore", false, "restore settings.json from the last backup")
	flags.StringVar(&opts.projectType, "type", "", "also add permissions, env and MCP servers for a project type")
	cmd.MarkFlagsMutuallyExclusive("remove", "status", "restore")
	return cmd
}

// settingsPath は対象となるsettings.jsonのパスを決める
func (a *App) settingsPath(user bool) (string, error) {
	if user {
		return hooks.UserSettingsPath(a.HomeDir)
	}
	if err := a.checkProjectDir(); err != nil {
		return "", err
	}
	// 設定ファイルの問題はsetupの妨げにしない
	cfg, _ := config.LoadOrDefault(a.loadOptions())
	a.applyLocale(cfg)
	return hooks.ProjectSettingsPath(cfg.ProjectDir), nil
}

func (a *App) runSetup(opts *setupOptions) error {
	path, err := a.settingsPath(opts.user)
	if err != nil {
		return err
	}
	manager := hooks.NewHookManager(path)

	switch {
	case opts.status:
		status, err := manager.Status()
		if err != nil {
			return err
		}
		a.println(i18n.T("setup_status",
			status.Path,
			yesNo(status.Installed),
			strings.Join(status.Events, ", "),
			yesNo(status.Backup),
		))
		return nil

	case opts.restore:
		if err := manager.Restore(); err != nil {
			return err
		}
		a.println(i18n.T("setup_restored", path))
		return nil

	case opts.remove:
		removed, err := manager.Remove()
		if err != nil {
			return err
		}
		if removed == 0 {
			a.println(i18n.T("setup_nothing_to_remove", path))
			return nil
		}
		a.println(i18n.T("setup_removed", path))
		return nil

	default:
		result, err := manager.Install(hooks.InstallOptions{ProjectType: opts.projectType})
		if err != nil {
			return err
		}
		a.println(i18n.T("setup_installed", result.Path))
		if result.Backup != "" {
			a.println(i18n.T("setup_backup_created", result.Backup))
		}
		return nil
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
