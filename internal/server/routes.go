package server

import (
	"net/http"
)

func SetupRoutes(featureHandler *FeatureService) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/files/", featureHandler.GetFileFeatures)

	return mux
}
