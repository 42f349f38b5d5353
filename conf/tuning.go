package conf

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Tuning groups the knobs of the sync engine. All durations are TOML
// strings like "30s" or "1h".
type Tuning struct {
	CacheTTL         duration `toml:"cache_ttl"`
	RequestTimeout   duration `toml:"request_timeout"`
	FetchMaxRetries  int      `toml:"fetch_max_retries"`
	FetchConcurrency int      `toml:"fetch_concurrency"`
	LockTTL          duration `toml:"lock_ttl"`
}

func DefaultTuning() Tuning {
	return Tuning{
		CacheTTL:         duration(time.Hour),
		RequestTimeout:   duration(30 * time.Second),
		FetchMaxRetries:  4,
		FetchConcurrency: 5,
		LockTTL:          duration(5 * time.Minute),
	}
}

func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := toml.Unmarshal(data, &t); err != nil {
		return t, err
	}
	return t, nil
}

func (t Tuning) CacheTTLDur() time.Duration       { return time.Duration(t.CacheTTL) }
func (t Tuning) RequestTimeoutDur() time.Duration { return time.Duration(t.RequestTimeout) }
func (t Tuning) LockTTLDur() time.Duration        { return time.Duration(t.LockTTL) }

type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}
