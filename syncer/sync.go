package syncer

import (
	"encoding/json"
	intErrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/certsync/certsync/certview"
	"github.com/certsync/certsync/db"
	"github.com/certsync/certsync/types"
	"github.com/certsync/certsync/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Defaults for a sync invocation when the caller doesn't override them.
const (
	DefaultFilterValue = "root"
	DefaultAssetType   = "MANAGED"
)

var DefaultIncludes = []string{"ASSET_INTERFACES"}

// SyncResult is the partial-progress summary of one sync run. It is
// returned even when the run terminated early; the APILog trail carries
// the diagnosis.
type SyncResult struct {
	TotalInserted  int `json:"total_inserted"`
	LastPageNumber int `json:"last_page_number"`
}

// PageRange renders the inclusive zero-based item-index span one page
// covers, e.g. page 0 at size 100 is "0-99".
func PageRange(pageNumber, pageSize int) string {
	start := pageNumber * pageSize
	end := start + pageSize - 1
	return fmt.Sprintf("%d-%d", start, end)
}

// SyncAllCertificates walks the listing endpoint page by page, upserting
// every certificate and nested asset it returns. Pages are fetched
// strictly in order, one at a time, and each page's data lands in one
// transaction. Every abnormal condition ends the loop; per-page failures
// are recorded on the page's audit row, never raised.
func SyncAllCertificates(filterValue, assetType string, includes []string) SyncResult {
	runID := uuid.New().String()
	pageSize := utils.PageSize()
	maxPages := utils.MaxPages()

	client, err := certview.Client()
	if err != nil {
		ErrorLogger(LogHolder{SyncRunID: runID, Message: err.Error()})
		return SyncResult{}
	}

	pageNumber := 0
	totalInserted := 0

	InfoLogger(LogHolder{SyncRunID: runID, Message: "Starting certificate sync"})

	for {
		if maxPages > 0 && pageNumber >= maxPages {
			WarnLogger(LogHolder{
				SyncRunID:  runID,
				PageNumber: strconv.Itoa(pageNumber),
				Message:    "Stopping sync at configured page cap",
			})
			break
		}

		pageRange := PageRange(pageNumber, pageSize)
		payload := certview.NewListCertificatesRequest(filterValue, pageNumber, pageSize, includes, assetType)

		requestBody, err := json.Marshal(payload)
		if err != nil {
			ErrorLogger(LogHolder{SyncRunID: runID, Message: errors.Wrap(err, "marshal page request").Error()})
			break
		}

		// The audit row is committed before the call goes out so even a
		// total failure leaves a record.
		logRow := types.APILog{
			Endpoint:        certview.ListCertificatesPath,
			PageNumber:      pageNumber,
			PageSize:        pageSize,
			PageRange:       pageRange,
			RequestBodyJSON: string(requestBody),
			SyncRunID:       runID,
			CreatedAt:       time.Now().UTC(),
		}
		if err := db.DB.Create(&logRow).Error; err != nil {
			ErrorLogger(LogHolder{SyncRunID: runID, Message: errors.Wrap(err, "create api log").Error()})
			break
		}

		DebugLogger(LogHolder{
			SyncRunID:  runID,
			Endpoint:   logRow.Endpoint,
			PageNumber: strconv.Itoa(pageNumber),
			PageRange:  pageRange,
			Message:    "Fetching certificate page",
		})

		page, err := client.ListCertificates(payload)
		if err != nil {
			var authErr *AuthError
			if !intErrors.As(err, &authErr) {
				err = &TransportError{Err: err}
			}
			finishLog(&logRow, nil, nil, err.Error())
			ErrorLogger(LogHolder{SyncRunID: runID, PageNumber: strconv.Itoa(pageNumber), Message: err.Error()})
			break
		}

		status := page.StatusCode
		if status != http.StatusOK {
			statusErr := &HTTPStatusError{StatusCode: status, Body: truncateBody(page.Body)}
			finishLog(&logRow, &status, nil, "Non-200 response: "+truncateBody(page.Body))
			ErrorLogger(LogHolder{SyncRunID: runID, PageNumber: strconv.Itoa(pageNumber), Message: statusErr.Error()})
			break
		}

		var items []certview.CertificatePayload
		if err := json.Unmarshal(page.Body, &items); err != nil {
			shapeErr := &DataShapeError{Msg: err.Error()}
			DebugLogger(LogHolder{SyncRunID: runID, PageNumber: strconv.Itoa(pageNumber), Message: shapeErr.Error()})
			items = nil
		}
		if len(items) == 0 {
			// Not a non-empty list: no more data. Normal termination.
			zero := 0
			finishLog(&logRow, &status, &zero, "")
			InfoLogger(LogHolder{
				SyncRunID:  runID,
				PageNumber: strconv.Itoa(pageNumber),
				Message:    "No more certificates to fetch",
			})
			break
		}

		count := len(items)
		upserted := 0
		err = db.DB.Transaction(func(tx *gorm.DB) error {
			for i := range items {
				ok, err := upsertCertificate(tx, &items[i], pageRange)
				if err != nil {
					return err
				}
				if ok {
					upserted++
				}
			}
			return nil
		})
		if err != nil {
			finishLog(&logRow, &status, &count, err.Error())
			ErrorLogger(LogHolder{SyncRunID: runID, PageNumber: strconv.Itoa(pageNumber), Message: err.Error()})
			break
		}

		finishLog(&logRow, &status, &count, "")

		totalInserted += upserted
		pageNumber++
		PagesFetched.Inc()
		CertificatesUpserted.Add(float64(upserted))
	}

	InfoLogger(LogHolder{
		SyncRunID: runID,
		Metric:    strconv.Itoa(totalInserted),
		Message:   "Certificate sync finished",
	})

	return SyncResult{TotalInserted: totalInserted, LastPageNumber: pageNumber}
}

// finishLog records the outcome on the page's audit row. It commits on
// its own, decoupled from the page's data transaction, so the record
// survives a rolled-back page.
func finishLog(row *types.APILog, statusCode *int, responseCount *int, errMsg string) {
	updates := map[string]interface{}{}
	if statusCode != nil {
		updates["status_code"] = *statusCode
	}
	if responseCount != nil {
		updates["response_count"] = *responseCount
	}
	if errMsg != "" {
		updates["error_message"] = errMsg
	}
	if len(updates) == 0 {
		return
	}
	if err := db.DB.Model(row).Updates(updates).Error; err != nil {
		ErrorLogger(LogHolder{Message: errors.Wrap(err, "finish api log").Error()})
	}
}

// upsertCertificate maps one listing item onto a certificate row and its
// nested assets. Returns false when the item has no id and was skipped.
// Every field is overwritten on update except mapped_to_inventory, which
// only gets its initial false at creation.
func upsertCertificate(tx *gorm.DB, item *certview.CertificatePayload, pageRange string) (bool, error) {
	if item.ID == nil {
		return false, nil
	}
	id := *item.ID

	var existing types.Certificate
	err := tx.Where("id = ?", id).First(&existing).Error
	if intErrors.Is(err, gorm.ErrRecordNotFound) {
		cert := certificateFromPayload(item, pageRange)
		cert.MappedToInventory = false
		cert.InsertedAt = time.Now().UTC()
		if err := tx.Create(&cert).Error; err != nil {
			return false, errors.Wrapf(err, "create certificate %d", id)
		}
	} else if err != nil {
		return false, errors.Wrapf(err, "look up certificate %d", id)
	} else {
		cert := certificateFromPayload(item, pageRange)
		err := tx.Model(&types.Certificate{}).
			Where("id = ?", id).
			Updates(certificateUpdates(&cert)).
			Error
		if err != nil {
			return false, errors.Wrapf(err, "update certificate %d", id)
		}
	}

	for i := range item.Assets {
		if err := upsertAsset(tx, id, &item.Assets[i]); err != nil {
			return false, err
		}
	}

	return true, nil
}

func certificateFromPayload(item *certview.CertificatePayload, pageRange string) types.Certificate {
	return types.Certificate{
		ID:                 *item.ID,
		CertHash:           item.CertHash,
		SerialNumber:       item.SerialNumber,
		DN:                 item.DN,
		CertType:           item.Type,
		SignatureAlgorithm: item.SignatureAlgorithm,
		KeySize:            item.KeySize,
		SelfSigned:         item.SelfSigned,
		ExtendedValidation: item.ExtendedValidation,
		ValidFromDate:      parseTimestamp(item.ValidFromDate),
		ValidToDate:        parseTimestamp(item.ValidToDate),
		CreatedDate:        parseTimestamp(item.CreatedDate),
		UpdateDate:         parseTimestamp(item.UpdateDate),
		IssuerCategory:     item.IssuerCategory,
		InstanceCount:      item.InstanceCount,
		AssetCount:         item.AssetCount,
		SourcesJSON:        rawJSONString(item.Sources),
		SubjectJSON:        rawJSONString(item.Subject),
		IssuerJSON:         rawJSONString(item.Issuer),
		PageRange:          pageRange,
	}
}

// certificateUpdates is the column set overwritten on every sync.
// mapped_to_inventory and inserted_at are deliberately absent.
func certificateUpdates(cert *types.Certificate) map[string]interface{} {
	return map[string]interface{}{
		"cert_hash":           cert.CertHash,
		"serial_number":       cert.SerialNumber,
		"dn":                  cert.DN,
		"cert_type":           cert.CertType,
		"signature_algorithm": cert.SignatureAlgorithm,
		"key_size":            cert.KeySize,
		"self_signed":         cert.SelfSigned,
		"extended_validation": cert.ExtendedValidation,
		"valid_from_date":     cert.ValidFromDate,
		"valid_to_date":       cert.ValidToDate,
		"created_date":        cert.CreatedDate,
		"update_date":         cert.UpdateDate,
		"issuer_category":     cert.IssuerCategory,
		"instance_count":      cert.InstanceCount,
		"asset_count":         cert.AssetCount,
		"sources_json":        cert.SourcesJSON,
		"subject_json":        cert.SubjectJSON,
		"issuer_json":         cert.IssuerJSON,
		"page_range":          cert.PageRange,
	}
}

// upsertAsset applies one nested asset entry keyed by the composite
// (certificate id, asset id). Entries without an id are skipped.
func upsertAsset(tx *gorm.DB, certificateID int64, payload *certview.AssetPayload) error {
	if payload.ID == nil {
		return nil
	}
	assetID := *payload.ID

	asset := types.Asset{
		CertificateID:       certificateID,
		AssetID:             assetID,
		UUID:                payload.UUID,
		Name:                payload.Name,
		NetbiosName:         payload.NetbiosName,
		OperatingSystem:     payload.OperatingSystem,
		PrimaryIP:           payload.PrimaryIP,
		HostInstancesJSON:   rawJSONString(payload.HostInstances),
		AssetInterfacesJSON: rawJSONString(payload.AssetInterfaces),
	}

	var existing types.Asset
	err := tx.Where("certificate_id = ? AND asset_id = ?", certificateID, assetID).First(&existing).Error
	if intErrors.Is(err, gorm.ErrRecordNotFound) {
		asset.InsertedAt = time.Now().UTC()
		err := tx.Create(&asset).Error
		if err != nil && isUniqueViolation(err) {
			// Lost a race on the composite key; fall through to update.
			return errors.Wrapf(
				tx.Model(&types.Asset{}).
					Where("certificate_id = ? AND asset_id = ?", certificateID, assetID).
					Updates(assetUpdates(&asset)).
					Error,
				"update asset %d after conflict", assetID)
		}
		return errors.Wrapf(err, "create asset %d", assetID)
	} else if err != nil {
		return errors.Wrapf(err, "look up asset %d", assetID)
	}

	err = tx.Model(&types.Asset{}).
		Where("certificate_id = ? AND asset_id = ?", certificateID, assetID).
		Updates(assetUpdates(&asset)).
		Error
	return errors.Wrapf(err, "update asset %d", assetID)
}

func assetUpdates(asset *types.Asset) map[string]interface{} {
	return map[string]interface{}{
		"uuid":                  asset.UUID,
		"name":                  asset.Name,
		"netbios_name":          asset.NetbiosName,
		"operating_system":      asset.OperatingSystem,
		"primary_ip":            asset.PrimaryIP,
		"host_instances_json":   asset.HostInstancesJSON,
		"asset_interfaces_json": asset.AssetInterfacesJSON,
	}
}

// isUniqueViolation covers both dialects db.Open supports: SQLSTATE
// 23505 from postgres (pgx) and the unique/primary-key constraint
// extended codes from sqlite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if intErrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if intErrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// parseTimestamp handles CertView's ISO-8601 dates, e.g.
// "2038-01-15T12:00:00.000+00:00". Unparsable or empty input stores as
// null rather than failing the page.
func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil
	}
	return &t
}

// rawJSONString serializes an upstream substructure verbatim. Absent or
// null input stores as null, not an empty placeholder.
func rawJSONString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	s := string(raw)
	return &s
}
