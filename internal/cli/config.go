package cli

import (
	"github.com/spf13/cobra"

	"github.com/y-hirakaw/cchook/internal/config"
	"github.com/y-hirakaw/cchook/internal/errors"
	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/utils"
)

func (a *App) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Validate, show or create the cchook configuration",
		GroupID: groupTools,
	}

	var (
		user  bool
		force bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to .claude/cchook.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConfigInit(user, force)
		},
	}
	initCmd.Flags().BoolVar(&user, "user", false, "write ~/.claude/cchook.yaml instead of the project file")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file (a .backup is kept)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration and report every problem",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				a.println(i18n.T("config_valid", configSource(cfg)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := a.loadConfig()
				if err != nil {
					return err
				}
				data, err := cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = a.Stdout.Write(data)
				return err
			},
		},
		initCmd,
	)
	return cmd
}

func configSource(cfg *config.Config) string {
	if cfg.Path == "" {
		return i18n.T("config_defaults")
	}
	return cfg.Path
}

// runConfigInit はデフォルト設定をファイルに書き出す
func (a *App) runConfigInit(user, force bool) error {
	var path string
	if user {
		home := a.HomeDir
		if home == "" {
			dir, err := utils.GetHomeDirectory()
			if err != nil {
				return err
			}
			home = dir
		}
		path = config.UserConfigPath(home)
	} else {
		if err := a.checkProjectDir(); err != nil {
			return err
		}
		cfg, _ := config.LoadOrDefault(a.loadOptions())
		path = config.ProjectConfigPath(cfg.ProjectDir)
	}

	if utils.FileExists(path) && !force {
		return errors.ConfigExists(path)
	}

	backup, err := config.Save(config.Default(), path)
	if err != nil {
		return err
	}
	a.println(i18n.T("config_initialized", path))
	if backup != "" {
		a.println(i18n.T("setup_backup_created", backup))
	}
	return nil
}
