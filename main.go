package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmihailenco/taskq/v3"
	"github.com/vmihailenco/taskq/v3/redisq"

	"github.com/certsync/certsync/api"
	"github.com/certsync/certsync/certview"
	"github.com/certsync/certsync/db"
	"github.com/certsync/certsync/prometheus"
	"github.com/certsync/certsync/syncer"
	"github.com/certsync/certsync/types"
	"github.com/certsync/certsync/utils"
)

// CertViewURL is the base url for the CertView API gateway
var CertViewURL string

// AuthURL is the token issuance endpoint on the auth gateway
var AuthURL string

// Username is the API username for the auth gateway
var Username string

// Password is the API password for the auth gateway
var Password string

func main() {
	var port string
	var debugMode bool
	flag.BoolVar(&debugMode, "debug", false, "Enable debug output")
	flag.StringVar(&port, "port", "8000", "Port number to run certsync on.")
	flag.StringVar(&CertViewURL, "certviewurl", "", "CertView API base URL")
	flag.StringVar(&AuthURL, "authurl", "", "Auth gateway token endpoint URL")
	flag.StringVar(&Username, "username", "", "API username for the auth gateway")
	flag.StringVar(&Password, "password", "", "API password for the auth gateway")
	flag.Int("pagesize", 100, "Number of certificates requested per page.")
	flag.Int("maxpages", 0, "Optional cap on pages per sync run. 0 means unlimited.")
	flag.Duration("timeout", 60*time.Second, "HTTP request timeout for both endpoints.")
	flag.Duration("syncinterval", 0, "Interval between scheduled sync runs. 0 disables scheduling.")
	flag.String("basicauthuser", "", "Username protecting mutating routes (optional).")
	flag.String("basicauthpassword", "", "Password protecting mutating routes.")
	flag.String("redis-host", "localhost", "Redis host for the scheduled sync queue.")
	flag.String("redis-port", "6379", "Redis port for the scheduled sync queue.")
	flag.String("redis-password", "", "Redis password for the scheduled sync queue.")

	flag.Parse()

	if CertViewURL == "" {
		log.Fatal("CertView base URL missing. Exiting.")
	}

	if AuthURL == "" {
		log.Fatal("Auth gateway URL missing. Exiting.")
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthcheck", api.HealthCheck).Methods("GET")
	r.HandleFunc("/certificates", api.CertificatesHandler).Methods("GET")
	r.HandleFunc("/certificates/export.csv", api.ExportCertificatesCSV).Methods("GET")
	r.HandleFunc("/certificates/{id}/mapped", utils.BasicAuth(api.UpdateCertificateMappedHandler)).Methods("PATCH")
	r.HandleFunc("/assets", api.AssetsHandler).Methods("GET")
	r.HandleFunc("/assets/export.csv", api.ExportAssetsCSV).Methods("GET")
	r.HandleFunc("/sync", utils.BasicAuth(syncer.SyncHandler)).Methods("POST")
	r.HandleFunc("/sync/logs", syncer.SyncLogsHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	http.Handle("/", r)

	if err := db.Open(); err != nil {
		log.Fatal("Failed to open database")
	}
	defer db.Close()

	err := db.DB.AutoMigrate(
		&types.Certificate{},
		&types.Asset{},
		&types.APILog{},
		&types.AuthToken{},
	)
	if err != nil {
		log.Fatal(err)
	}

	tokens := syncer.NewTokenStore(db.DB, utils.AuthURL(), utils.APIUsername(), utils.APIPassword(), utils.RequestTimeout())
	certview.InitClient(utils.CertViewURL(), tokens, utils.RequestTimeout())

	syncer.Metrics()
	prometheus.Metrics()

	if utils.SyncInterval() > 0 {
		queueFactory := redisq.NewFactory()
		syncQueue := queueFactory.RegisterQueue(&taskq.QueueOptions{
			Name:  "certsync-scheduled",
			Redis: syncer.RedisClient(),
		})
		go syncer.ScheduledSync(syncQueue)
		go syncer.ProcessScheduledSyncQueue(syncQueue)
	}

	fmt.Println("certsync is running, hold onto your butts...")

	log.Print(http.ListenAndServe(":"+port, nil))
}
