package conf

import (
	"fmt"
	"os"
	"strconv"
)

// Conf holds process configuration read from the environment. Tuning
// knobs with sensible defaults live in Tuning and may be overridden by a
// TOML file (see tuning.go).
type Conf struct {
	PolygonApiUrl    string
	PolygonApiKey    string
	PolygonApiSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// StorageProvider selects the blob backend: "s3", "azure", "gcs",
	// "gdrive" or "local". Unknown values fall back to "local" with a
	// warning.
	StorageProvider string

	S3Region string
	S3Bucket string

	AzureConnectionString string
	AzureContainer        string

	GcsBucket          string
	GcsCredentialsFile string

	GdriveCredentialsFile string
	GdriveRootFolderID    string

	LocalStoragePath string

	JwtKey []byte

	Tuning Tuning
}

// FromEnv reads configuration from the environment. It returns an error
// for missing Polygon credentials since nothing works without them.
func FromEnv() (*Conf, error) {
	apiKey := os.Getenv("POLYGON_API_KEY")
	apiSecret := os.Getenv("POLYGON_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("POLYGON_API_KEY and POLYGON_API_SECRET must be set")
	}

	c := &Conf{
		PolygonApiUrl:    getEnv("POLYGON_API_URL", "https://polygon.codeforces.com/api"),
		PolygonApiKey:    apiKey,
		PolygonApiSecret: apiSecret,

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageProvider: getEnv("STORAGE_PROVIDER", "local"),

		S3Region: getEnv("S3_REGION", "eu-central-1"),
		S3Bucket: os.Getenv("S3_BUCKET"),

		AzureConnectionString: os.Getenv("AZURE_STORAGE_CONNECTION_STRING"),
		AzureContainer:        os.Getenv("AZURE_CONTAINER_NAME"),

		GcsBucket:          os.Getenv("GCS_BUCKET"),
		GcsCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),

		GdriveCredentialsFile: os.Getenv("GDRIVE_CREDENTIALS_FILE"),
		GdriveRootFolderID:    os.Getenv("GDRIVE_ROOT_FOLDER_ID"),

		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "media"),

		JwtKey: []byte(os.Getenv("JWT_KEY")),

		Tuning: DefaultTuning(),
	}

	if path := os.Getenv("POLYMIGRATE_TUNING_FILE"); path != "" {
		tuning, err := LoadTuning(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load tuning file %s: %w", path, err)
		}
		c.Tuning = tuning
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return fallback
}
