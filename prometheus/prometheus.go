package prometheus

import (
	"time"

	"github.com/certsync/certsync/db"
	"github.com/certsync/certsync/log"
	"github.com/certsync/certsync/types"
	"github.com/prometheus/client_golang/prometheus"
)

func Metrics() {
	totalCertificates()
	totalAssets()
	mappedCertificates()
}

func totalCertificates() {
	var count int64
	totalCertificates := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "certsync",
		Subsystem: "certificates",
		Name:      "count",
		Help:      "Total number of certificates in the inventory",
	})
	prometheus.MustRegister(totalCertificates)
	go func() {
		for range time.Tick(time.Second * 10) {
			err := db.DB.Model(&types.Certificate{}).Count(&count).Error
			if err != nil {
				log.Error(err)
			}
			totalCertificates.Set(float64(count))
		}
	}()
}

func totalAssets() {
	var count int64
	totalAssets := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "certsync",
		Subsystem: "assets",
		Name:      "count",
		Help:      "Total number of assets in the inventory",
	})
	prometheus.MustRegister(totalAssets)
	go func() {
		for range time.Tick(time.Second * 10) {
			err := db.DB.Model(&types.Asset{}).Count(&count).Error
			if err != nil {
				log.Error(err)
			}
			totalAssets.Set(float64(count))
		}
	}()
}

func mappedCertificates() {
	var count int64
	mappedCertificates := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "certsync",
		Subsystem: "certificates",
		Name:      "mapped_count",
		Help:      "Number of certificates mapped to inventory",
	})
	prometheus.MustRegister(mappedCertificates)
	go func() {
		for range time.Tick(time.Second * 10) {
			err := db.DB.Model(&types.Certificate{}).Where("mapped_to_inventory = ?", true).Count(&count).Error
			if err != nil {
				log.Error(err)
			}
			mappedCertificates.Set(float64(count))
		}
	}()
}
