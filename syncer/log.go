package syncer

import (
	log "github.com/sirupsen/logrus"
)

type LogHolder struct {
	SyncRunID     string
	Endpoint      string
	PageNumber    string
	PageRange     string
	CertificateID string
	Metric        string
	Message       string
}

func processFields(logholder LogHolder) *log.Entry {
	logger := log.WithFields(log.Fields{})
	if logholder.SyncRunID != "" {
		logger = logger.WithFields(
			log.Fields{
				"sync_run_id": logholder.SyncRunID,
			})
	}

	if logholder.Endpoint != "" {
		logger = logger.WithFields(
			log.Fields{
				"endpoint": logholder.Endpoint,
			})
	}

	if logholder.PageNumber != "" {
		logger = logger.WithFields(
			log.Fields{
				"page_number": logholder.PageNumber,
			})
	}

	if logholder.PageRange != "" {
		logger = logger.WithFields(
			log.Fields{
				"page_range": logholder.PageRange,
			})
	}

	if logholder.CertificateID != "" {
		logger = logger.WithFields(
			log.Fields{
				"certificate_id": logholder.CertificateID,
			})
	}

	if logholder.Metric != "" {
		logger = logger.WithFields(
			log.Fields{
				"metric": logholder.Metric,
			})
	}

	return logger
}

func DebugLogger(logholder LogHolder) {
	logger := processFields(logholder)
	logger.Debug(logholder.Message)
}

func InfoLogger(logholder LogHolder) {
	logger := processFields(logholder)
	logger.Info(logholder.Message)
}

func WarnLogger(logholder LogHolder) {
	logger := processFields(logholder)

	logger.Warn(logholder.Message)
}

func ErrorLogger(logholder LogHolder) {
	logger := processFields(logholder)

	logger.Error(logholder.Message)
}
