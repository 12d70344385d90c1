// Package checker implements the read-only status pass: it re-reads a
// transfer config on the receiving system and tests which of the expected
// files actually arrived.
package checker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/utils"
)

// Report summarizes one existence scan.
type Report struct {
	Found        int
	Missing      int
	MissingPaths []string
}

// Scan walks every group and tests local existence of remote_base/file.
// It performs no writes and no retries.
func Scan(groups []config.TransferGroup) *Report {
	report := &Report{}

	for i := range groups {
		g := &groups[i]
		for _, rel := range g.Files {
			fullPath := filepath.Join(g.RemoteBase, filepath.FromSlash(rel))
			if utils.FileExists(fullPath) {
				report.Found++
				continue
			}
			slog.Debug("missing", "group", g.Name, "path", fullPath)
			report.Missing++
			report.MissingPaths = append(report.MissingPaths, fullPath)
		}
	}

	return report
}

// WriteMissing writes the missing full paths to the report file, one per
// line. An empty report still produces an (empty) file so downstream
// tooling can distinguish "checked, nothing missing" from "never checked".
func (r *Report) WriteMissing(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	var sb strings.Builder
	for _, p := range r.MissingPaths {
		sb.WriteString(p)
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
