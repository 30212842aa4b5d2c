// Package remote synchronizes the device document with a shared relay.
//
// Sync is best effort. Every failure is logged and retried on the next tick or
// save; none reaches the caller of a local operation.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPollInterval applies when the config carries no usable pollMs.
const DefaultPollInterval = time.Second

const maxConfigBytes = 64 << 10

// Config is the remote sync resource.
type Config struct {
	Enabled  bool   `koanf:"enabled" json:"enabled"`
	Endpoint string `koanf:"endpoint" json:"endpoint"`
	Room     string `koanf:"room" json:"room"`
	Token    string `koanf:"token" json:"token"`
	PollMs   int    `koanf:"pollMs" json:"pollMs"`
}

// Validate reports ErrDisabled or ErrIncomplete for a config sync cannot run on.
func (c Config) Validate() error {
	if !c.Enabled {
		return ErrDisabled
	}
	var missing []string
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(c.Room) == "" {
		missing = append(missing, "room")
	}
	if strings.TrimSpace(c.Token) == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// PollInterval returns the pull interval.
func (c Config) PollInterval() time.Duration {
	if c.PollMs <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.PollMs) * time.Millisecond
}

// LoadConfig reads the resource at source, a file path or an http(s) URL. The
// document may be JSON or YAML. The result still has to pass Validate.
func LoadConfig(ctx context.Context, source string, client *http.Client) (Config, error) {
	var cfg Config
	source = strings.TrimSpace(source)
	if source == "" {
		return cfg, fmt.Errorf("%w: no source configured", ErrConfigSource)
	}

	var provider koanf.Provider
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err := fetchConfig(ctx, source, client)
		if err != nil {
			return cfg, err
		}
		provider = bytesProvider(body)
	} else {
		provider = file.Provider(source)
	}

	k := koanf.New(".")
	if err := k.Load(provider, yaml.Parser()); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrConfigSource, err)
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrConfigSource, err)
	}
	return cfg, nil
}

func fetchConfig(ctx context.Context, url string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigSource, err)
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigSource, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %w", ErrConfigSource, &StatusError{Op: "config", Code: resp.StatusCode})
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxConfigBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigSource, err)
	}
	return body, nil
}

// bytesProvider is a koanf.Provider over an in-memory document.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]any, error) {
	return nil, errors.New("bytes provider does not support Read")
}
