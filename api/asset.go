package api

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/certsync/certsync/db"
	"github.com/certsync/certsync/log"
	"github.com/certsync/certsync/types"
)

// AssetsHandler lists assets with the simple substring filters the UI
// exposes, plus an exact certificate id filter.
func AssetsHandler(w http.ResponseWriter, r *http.Request) {
	q := db.DB.Model(&types.Asset{})

	params := r.URL.Query()
	if v := params.Get("name"); v != "" {
		q = q.Where("name LIKE ?", "%"+v+"%")
	}
	if v := params.Get("uuid"); v != "" {
		q = q.Where("uuid LIKE ?", "%"+v+"%")
	}
	if v := params.Get("ip"); v != "" {
		q = q.Where("primary_ip LIKE ?", "%"+v+"%")
	}
	if v := params.Get("os"); v != "" {
		q = q.Where("operating_system LIKE ?", "%"+v+"%")
	}
	if v := params.Get("cert_id"); v != "" {
		q = q.Where("certificate_id = ?", v)
	}

	page, perPage := pagination(params.Get("page"), params.Get("per_page"))

	var assets []types.Asset
	err := q.Order("id desc").Limit(perPage).Offset((page - 1) * perPage).Find(&assets).Error
	if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, &assets)
}

// ExportAssetsCSV streams the asset table as CSV, newest first, capped
// at exportLimit rows.
func ExportAssetsCSV(w http.ResponseWriter, r *http.Request) {
	var assets []types.Asset
	err := db.DB.Order("id desc").Limit(exportLimit).Find(&assets).Error
	if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=assets.csv")

	writer := csv.NewWriter(w)
	record := []string{
		"id", "certificate_id", "asset_id", "uuid", "name", "netbios_name", "operating_system", "primary_ip",
	}
	if err := writer.Write(record); err != nil {
		log.Error(err)
		return
	}

	for i := range assets {
		a := assets[i]
		record := []string{
			strconv.FormatInt(a.ID, 10),
			strconv.FormatInt(a.CertificateID, 10),
			strconv.FormatInt(a.AssetID, 10),
			a.UUID,
			a.Name,
			a.NetbiosName,
			a.OperatingSystem,
			a.PrimaryIP,
		}
		if err := writer.Write(record); err != nil {
			log.Error(err)
			return
		}
	}
	writer.Flush()
}
