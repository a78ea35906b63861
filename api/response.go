package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/certsync/certsync/log"
)

const defaultPerPage = 50

func pagination(pageParam, perPageParam string) (int, int) {
	page, err := strconv.Atoi(pageParam)
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(perPageParam)
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	output, err := json.MarshalIndent(body, "", "    ")
	if err != nil {
		log.Error(err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	_, err = w.Write(output)
	if err != nil {
		log.Error(err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write([]byte(`{"error": ` + strconv.Quote(msg) + `}`))
	if err != nil {
		log.Error(err)
	}
}

func timeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
