package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/polymigrate/conf"
	"github.com/probelab/polymigrate/storage"
)

func TestFactorySelectsLocal(t *testing.T) {
	t.Parallel()
	c := &conf.Conf{StorageProvider: "local", LocalStoragePath: t.TempDir()}

	p, err := storage.NewFromConf(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalProvider{}, p)
}

func TestFactoryFallsBackToLocalOnUnknown(t *testing.T) {
	t.Parallel()
	c := &conf.Conf{StorageProvider: "ftp", LocalStoragePath: t.TempDir()}

	p, err := storage.NewFromConf(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalProvider{}, p)
}

func TestFactoryAzureRejectsMalformedConnectionString(t *testing.T) {
	t.Parallel()
	c := &conf.Conf{
		StorageProvider:       "azure",
		AzureConnectionString: "not-a-connection-string",
		AzureContainer:        "problems",
	}

	_, err := storage.NewFromConf(context.Background(), c)
	require.Error(t, err)
}

func TestFactoryGcsRejectsMissingCredentialsFile(t *testing.T) {
	t.Parallel()
	c := &conf.Conf{
		StorageProvider:    "gcs",
		GcsBucket:          "problems",
		GcsCredentialsFile: "/nonexistent/credentials.json",
	}

	_, err := storage.NewFromConf(context.Background(), c)
	require.Error(t, err)
}

func TestFactoryGdriveRejectsMissingCredentialsFile(t *testing.T) {
	t.Parallel()
	c := &conf.Conf{
		StorageProvider:       "gdrive",
		GdriveCredentialsFile: "/nonexistent/credentials.json",
		GdriveRootFolderID:    "root",
	}

	_, err := storage.NewFromConf(context.Background(), c)
	require.Error(t, err)
}

func TestFactoryIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	c := &conf.Conf{StorageProvider: "LOCAL", LocalStoragePath: t.TempDir()}

	p, err := storage.NewFromConf(context.Background(), c)
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalProvider{}, p)
}
