package storage

import (
	"context"
	"strings"

	"github.com/probelab/polymigrate/conf"
	"github.com/probelab/polymigrate/logger"
)

// NewFromConf returns the configured Provider. Unknown values fall
// back to the local filesystem with a warning so that a botched
// deployment degrades instead of crashing.
func NewFromConf(ctx context.Context, c *conf.Conf) (Provider, error) {
	provider := strings.ToLower(c.StorageProvider)
	log := logger.FromContext(ctx)
	log.Info("initializing storage provider", "provider", provider)

	switch provider {
	case "s3":
		return NewS3Provider(ctx, c.S3Region, c.S3Bucket)
	case "azure":
		return NewAzureProvider(c.AzureConnectionString, c.AzureContainer)
	case "gcs":
		return NewGCSProvider(ctx, c.GcsBucket, c.GcsCredentialsFile)
	case "gdrive":
		return NewGDriveProvider(ctx, c.GdriveCredentialsFile, c.GdriveRootFolderID)
	case "local":
		return NewLocalProvider(c.LocalStoragePath)
	default:
		log.Warn("unknown storage provider, falling back to local",
			"provider", c.StorageProvider)
		return NewLocalProvider(c.LocalStoragePath)
	}
}
