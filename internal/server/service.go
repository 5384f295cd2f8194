package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/thiago-r-goveia/bearing-vibration/internal/database"
)

const (
	filesPrefix     = "/files/"
	featuresSuffix  = "/features"
	featuresPathFmt = "/files/{file_name}/features"
)

type FeatureService struct {
	DBManager database.DBManager
	log       *slog.Logger
}

func NewFeatureService(dbManager database.DBManager, log *slog.Logger) *FeatureService {
	return &FeatureService{DBManager: dbManager, log: log}
}

// GetFileFeatures serves the sensor features stored for a measurement file.
func (h *FeatureService) GetFileFeatures(w http.ResponseWriter, r *http.Request) {
	fileName, ok := parseFeaturesPath(r.URL.Path)
	if !ok {
		http.Error(w, "File name is required in the URL path "+featuresPathFmt, http.StatusBadRequest)
		return
	}

	features, err := h.DBManager.GetFileFeatures(fileName)
	if err != nil {
		h.log.Error("failed to retrieve file features", slog.String("file", fileName), slog.Any("error", err))
		http.Error(w, "Failed to retrieve file features", http.StatusInternalServerError)
		return
	}
	if len(features) == 0 {
		http.Error(w, "No features found for file "+fileName, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(features); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// parseFeaturesPath extracts file_name from /files/{file_name}/features.
func parseFeaturesPath(path string) (string, bool) {
	if !strings.HasPrefix(path, filesPrefix) || !strings.HasSuffix(path, featuresSuffix) {
		return "", false
	}
	fileName := strings.TrimSuffix(strings.TrimPrefix(path, filesPrefix), featuresSuffix)
	if fileName == "" || strings.Contains(fileName, "/") {
		return "", false
	}
	return fileName, true
}
