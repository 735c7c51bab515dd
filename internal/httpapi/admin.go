package httpapi

import (
	"bytes"
	"fmt"
	"net/http"

	"mustawda/backend/internal/backup"
	"mustawda/backend/internal/logging"
)

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.Dashboard(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleExportBackup streams the backup document as a file download.
func (a *API) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := a.service.ExportBackup(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := backup.Encode(&buf, doc); err != nil {
		a.writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("backup-%s.json", doc.ExportDate.Format("2006-01-02-150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *API) handleWriteBackup(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.WriteBackup(r.Context(), a.backups)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleMigrate(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.Migrate(r.Context())
	if err != nil {
		status := statusFor(err)
		msg := "فشل ترحيل قاعدة البيانات"
		if status < http.StatusInternalServerError {
			msg = err.Error()
		} else {
			logging.LogError(a.logger, "http", "handleMigrate", "migrate schema", report.Changes, err)
		}
		writeJSON(w, status, map[string]any{
			"success": false,
			"message": msg,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}
