package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Settings holds the database configuration read from settings.json in
// the working directory. Everything else is supplied via flags.
type Settings struct {
	DatabaseType     string `json:"database_type"`
	ConnectionString string `json:"connection_string"`
}

func LoadSettings() *Settings {
	var settings Settings

	cwd, err := os.Getwd()
	if err != nil {
		log.Print(err)
	}

	settingsPath := filepath.Join(cwd, "settings.json")

	byteValue, err := os.ReadFile(settingsPath)
	if err != nil {
		log.Print(err)
		return &settings
	}

	if err := json.Unmarshal(byteValue, &settings); err != nil {
		log.Print(err)
	}

	return &settings
}
