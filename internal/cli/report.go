package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/config"
	"github.com/y-hirakaw/cchook/internal/errors"
	"github.com/y-hirakaw/cchook/internal/security"
	"github.com/y-hirakaw/cchook/internal/stats"
	"github.com/y-hirakaw/cchook/internal/ui"
	"github.com/y-hirakaw/cchook/internal/utils"
	"github.com/y-hirakaw/cchook/pkg/types"
)

const (
	dateLayout      = "20060102"
	topToolsShown   = 10
	defaultHistory  = 10
	defaultAuditMax = 20
	auditReasonMax  = 60
)

// parseDate はYYYYMMDD形式の日付を解析する（空なら今日）
func (a *App) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return a.now(), nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, errors.InvalidDateFormat(raw)
	}
	return date, nil
}

func (a *App) writeJSON(v interface{}) error {
	encoder := json.NewEncoder(a.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (a *App) newStatsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "stats",
		Short:   "Show cumulative tool usage statistics",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger := a.cliLogger(cfg)
			store, err := a.openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			overview, err := stats.NewStatsManager(store, a.now).GetOverview(topToolsShown)
			if err != nil {
				return errors.StorageFailed(err)
			}
			if asJSON {
				return a.writeJSON(overview)
			}
			fmt.Fprint(a.Stdout, ui.NewRenderer(a.color()).Overview(overview))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *App) newHistoryCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "history",
		Short:   "Show recent session reports",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			store, err := a.openStore(cfg, a.cliLogger(cfg))
			if err != nil {
				return err
			}
			defer store.Close()

			history, err := store.LoadHistory()
			if err != nil {
				return errors.StorageFailed(err)
			}
			if asJSON {
				return a.writeJSON(history)
			}
			fmt.Fprint(a.Stdout, ui.NewRenderer(a.color()).History(history, limit))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistory, "number of sessions to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *App) newLogsCommand() *cobra.Command {
	var date, kind string
	cmd := &cobra.Command{
		Use:     "logs",
		Short:   "Print a dated log, decrypting parameters when possible",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logKind := types.LogKind(kind)
			if !logKind.IsValid() {
				return errors.InvalidLogKind(kind)
			}
			day, err := a.parseDate(date)
			if err != nil {
				return err
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger := a.cliLogger(cfg)
			store, err := a.openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			lines, err := store.ReadLog(logKind, day)
			if err != nil {
				return errors.StorageFailed(err)
			}
			if len(lines) == 0 {
				a.notice("logs_empty", logKind, day.Format(dateLayout))
				return nil
			}

			decrypter := newLineDecrypter(cfg, logger)
			for _, line := range lines {
				a.println(decrypter.decrypt(line))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "date in YYYYMMDD format (defaults to today)")
	cmd.Flags().StringVarP(&kind, "kind", "k", string(types.LogKindUsage), "log kind: usage, notifications or sessions")
	return cmd
}

// lineDecrypter は使用ログの encrypted_parameters を復号して parameters に戻す
type lineDecrypter struct {
	crypto *security.EncryptionManager
	logger *zap.Logger
	ready  bool
	warned bool
}

func newLineDecrypter(cfg *config.Config, logger *zap.Logger) *lineDecrypter {
	d := &lineDecrypter{
		crypto: security.NewEncryptionManager(true, cfg.Passphrase, cfg.KeyFilePath()),
		logger: logger,
	}
	if err := d.crypto.Initialize(false); err != nil {
		logger.Debug("復号化の準備ができません", zap.Error(err))
		return d
	}
	d.ready = true
	return d
}

// decrypt は復号できればパラメータを戻した行を返し、できなければ元の行を返す
func (d *lineDecrypter) decrypt(line string) string {
	if !strings.Contains(line, `"encrypted_parameters"`) {
		return line
	}

	var record map[string]interface{}
	decoder := json.NewDecoder(strings.NewReader(line))
	decoder.UseNumber()
	if err := decoder.Decode(&record); err != nil {
		return line
	}
	encoded, ok := record["encrypted_parameters"].(string)
	if !ok || encoded == "" {
		return line
	}

	if !d.ready {
		d.warnOnce(errors.DecryptionFailed(security.ErrNoPassphrase))
		return line
	}
	plain, err := d.crypto.DecryptString(encoded)
	if err != nil {
		d.warnOnce(errors.DecryptionFailed(err))
		return line
	}

	var params map[string]interface{}
	if err := json.Unmarshal(plain, &params); err != nil {
		d.warnOnce(err)
		return line
	}
	delete(record, "encrypted_parameters")
	record["parameters"] = params

	data, err := json.Marshal(record)
	if err != nil {
		return line
	}
	return string(data)
}

func (d *lineDecrypter) warnOnce(err error) {
	if d.warned {
		return
	}
	d.warned = true
	d.logger.Warn("パラメータを復号できない行はそのまま表示します", zap.Error(err))
}

func (a *App) newAuditCommand() *cobra.Command {
	var (
		limit  int
		event  string
		since  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "audit",
		Short:   "Show blocked operations recorded in the audit log",
		GroupID: groupTools,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := security.AuditFilter{Event: event}
			if since != "" {
				day, err := a.parseDate(since)
				if err != nil {
					return err
				}
				filter.Since = day
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			records, err := security.NewAuditManager(cfg.LogDir, cfg.Audit.Enabled).GetAuditLogs(limit, filter)
			if err != nil {
				return errors.StorageFailed(err)
			}

			if asJSON {
				return a.writeJSON(records)
			}
			if len(records) == 0 {
				a.notice("audit_empty")
				return nil
			}

			styles := ui.PlainStyles()
			if a.color() {
				styles = ui.DefaultStyles()
			}
			table := ui.NewTable("Time", "Event", "Tool", "Session", "Reason")
			for _, r := range records {
				table.AddRow(
					r.Timestamp.Format("2006-01-02 15:04:05"),
					r.Event,
					r.ToolName,
					r.SessionID,
					utils.TruncateString(r.Reason, auditReasonMax),
				)
			}
			fmt.Fprint(a.Stdout, table.Render(styles))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&limit, "limit", "n", defaultAuditMax, "number of records to show (0 for all)")
	flags.StringVar(&event, "event", "", "only show one event type (command_blocked, path_blocked, tool_blocked)")
	flags.StringVar(&since, "since", "", "only show records on or after YYYYMMDD")
	flags.BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
