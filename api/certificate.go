package api

import (
	"encoding/csv"
	"encoding/json"
	intErrors "errors"
	"net/http"
	"strconv"

	"github.com/certsync/certsync/db"
	"github.com/certsync/certsync/log"
	"github.com/certsync/certsync/types"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const exportLimit = 200000

// CertificatesHandler lists certificates with the simple substring
// filters the UI exposes.
func CertificatesHandler(w http.ResponseWriter, r *http.Request) {
	q := db.DB.Model(&types.Certificate{})

	params := r.URL.Query()
	if v := params.Get("certhash"); v != "" {
		q = q.Where("cert_hash LIKE ?", "%"+v+"%")
	}
	if v := params.Get("serial"); v != "" {
		q = q.Where("serial_number LIKE ?", "%"+v+"%")
	}
	if v := params.Get("dn"); v != "" {
		q = q.Where("dn LIKE ?", "%"+v+"%")
	}
	if v := params.Get("type"); v != "" {
		q = q.Where("cert_type LIKE ?", "%"+v+"%")
	}
	if v := params.Get("mapped"); v == "true" || v == "false" {
		q = q.Where("mapped_to_inventory = ?", v == "true")
	}

	page, perPage := pagination(params.Get("page"), params.Get("per_page"))

	var certificates []types.Certificate
	err := q.Order("id desc").Limit(perPage).Offset((page - 1) * perPage).Find(&certificates).Error
	if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, &certificates)
}

// ExportCertificatesCSV streams the certificate table as CSV, newest
// first, capped at exportLimit rows.
func ExportCertificatesCSV(w http.ResponseWriter, r *http.Request) {
	var certificates []types.Certificate
	err := db.DB.Order("id desc").Limit(exportLimit).Find(&certificates).Error
	if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=certificates.csv")

	writer := csv.NewWriter(w)
	record := []string{
		"id", "certhash", "serial_number", "dn", "cert_type", "key_size", "signature_algorithm",
		"self_signed", "valid_from_date", "valid_to_date", "page_range", "mapped_to_inventory",
	}
	if err := writer.Write(record); err != nil {
		log.Error(err)
		return
	}

	for i := range certificates {
		c := certificates[i]
		record := []string{
			strconv.FormatInt(c.ID, 10),
			c.CertHash,
			c.SerialNumber,
			c.DN,
			c.CertType,
			strconv.Itoa(c.KeySize),
			c.SignatureAlgorithm,
			strconv.FormatBool(c.SelfSigned),
			timeString(c.ValidFromDate),
			timeString(c.ValidToDate),
			c.PageRange,
			strconv.FormatBool(c.MappedToInventory),
		}
		if err := writer.Write(record); err != nil {
			log.Error(err)
			return
		}
	}
	writer.Flush()
}

type mappedPayload struct {
	MappedToInventory *bool `json:"mapped_to_inventory"`
}

// UpdateCertificateMappedHandler toggles the locally-owned mapped flag.
// This is the only writer of the flag; sync never touches it after
// creation.
func UpdateCertificateMappedHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid certificate id")
		return
	}

	var payload mappedPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.MappedToInventory == nil {
		writeError(w, http.StatusBadRequest, "mapped_to_inventory is required (true/false)")
		return
	}

	var cert types.Certificate
	err = db.DB.Where("id = ?", id).First(&cert).Error
	if intErrors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "certificate not found")
		return
	} else if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	err = db.DB.Model(&types.Certificate{}).
		Where("id = ?", id).
		Update("mapped_to_inventory", *payload.MappedToInventory).
		Error
	if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"id":                  id,
		"mapped_to_inventory": *payload.MappedToInventory,
	})
}
