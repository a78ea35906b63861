package syncer

import (
	"encoding/json"
	"net/http"

	"github.com/certsync/certsync/db"
	"github.com/certsync/certsync/types"
)

type syncRequest struct {
	FilterValue string   `json:"filter_value"`
	AssetType   string   `json:"asset_type"`
	Includes    []string `json:"includes"`
}

// SyncHandler runs a sync and responds with the progress summary. Body
// fields are optional overrides; an empty body syncs with defaults.
func SyncHandler(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Empty or malformed body falls back to defaults.
		req = syncRequest{}
	}

	if req.FilterValue == "" {
		req.FilterValue = DefaultFilterValue
	}
	if req.AssetType == "" {
		req.AssetType = DefaultAssetType
	}
	if req.Includes == nil {
		req.Includes = DefaultIncludes
	}

	result := SyncAllCertificates(req.FilterValue, req.AssetType, req.Includes)

	output, err := json.MarshalIndent(&result, "", "    ")
	if err != nil {
		ErrorLogger(LogHolder{Message: err.Error()})
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	_, err = w.Write(output)
	if err != nil {
		ErrorLogger(LogHolder{Message: err.Error()})
	}
}

// SyncLogsHandler returns the most recent page-fetch audit rows.
func SyncLogsHandler(w http.ResponseWriter, r *http.Request) {
	var logs []types.APILog

	err := db.DB.Order("id desc").Limit(200).Find(&logs).Error
	if err != nil {
		ErrorLogger(LogHolder{Message: err.Error()})
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	output, err := json.MarshalIndent(&logs, "", "    ")
	if err != nil {
		ErrorLogger(LogHolder{Message: err.Error()})
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	_, err = w.Write(output)
	if err != nil {
		ErrorLogger(LogHolder{Message: err.Error()})
	}
}
