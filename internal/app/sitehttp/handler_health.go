package sitehttp

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
)

// healthStats — payload ответа /health.
type healthStats struct {
	OK         bool  `json:"ok"`
	TotalBytes int64 `json:"total_bytes"`
	Files      int   `json:"files"`
}

// health обходит корень раздачи и отдаёт суммарный размер и число файлов.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	var stats healthStats

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.TotalBytes += info.Size()
		stats.Files++

		return nil
	})

	// Пустой сайт (каталог ещё не создан) — это нормально.
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats.OK = true
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
