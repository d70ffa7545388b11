package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foldersync/foldersync/internal/registry"
)

// InfoResourceURI is the URI of the static server-info resource.
const InfoResourceURI = "foldersync://server/info"

type serverInfo struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	WatchDir     string `json:"watchDir"`
	PollInterval string `json:"pollInterval"`
}

// RegisterInfoResource adds a static resource describing the running server
// to the registry. It goes through the registry like any file resource, so
// it shows up in listings and its registration broadcasts list-changed.
func RegisterInfoResource(reg *registry.Registry, version, watchDir string, pollInterval time.Duration) {
	info := serverInfo{
		Name:         "foldersync",
		Version:      version,
		WatchDir:     watchDir,
		PollInterval: pollInterval.String(),
	}

	reg.Add(registry.Resource{
		URI:      InfoResourceURI,
		Name:     "Server Info",
		MIMEType: "application/json",
		Provider: func(context.Context) (string, error) {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return "", fmt.Errorf("marshal server info: %w", err)
			}
			return string(data), nil
		},
	})
}
