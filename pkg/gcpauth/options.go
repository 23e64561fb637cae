// Package gcpauth turns the GCP credential settings into client options
// shared by the Pub/Sub and Cloud Storage clients. With neither setting the
// clients fall back to Application Default Credentials.
package gcpauth

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/askservice/leadmarket-backend/pkg/config"
)

func Options(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}
