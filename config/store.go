package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/m4xw311/meowcli/errors"
)

// Provider ids. The set is fixed; settings commands validate against it.
const (
	ProviderBase       = "base"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// PlaceholderModel is the model value written on first run. It is not a
// usable model name; /chat rejects it until the user configures a real one.
const PlaceholderModel = "default-model"

// ProviderConfig holds the per-provider credentials and default model.
type ProviderConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type storeFile struct {
	DefaultProvider string                    `json:"default_provider"`
	Providers       map[string]ProviderConfig `json:"providers"`
}

// Store is the persistent provider configuration, kept as JSON under the
// platform config directory (meowcli/config.json). Load and save are
// explicit; there is no background persistence.
type Store struct {
	path string
	file storeFile
}

// DefaultStorePath returns the config.json location for this platform.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve user config directory")
	}
	return filepath.Join(dir, "meowcli", "config.json"), nil
}

// OpenStore reads the store at path, creating defaults in memory when the
// file is missing or unreadable. Providers absent from an existing file are
// merged back in with empty settings so a partial file never loses a
// provider.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, file: defaultStoreFile()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrapf(err, "could not read config file %s", path)
	}

	var loaded storeFile
	if err := json.Unmarshal(data, &loaded); err != nil {
		// A corrupt file falls back to defaults rather than blocking startup.
		return s, nil
	}
	if loaded.Providers == nil {
		loaded.Providers = map[string]ProviderConfig{}
	}
	for id, pc := range defaultStoreFile().Providers {
		if _, ok := loaded.Providers[id]; !ok {
			loaded.Providers[id] = pc
		}
	}
	if loaded.DefaultProvider == "" {
		loaded.DefaultProvider = ProviderBase
	}
	s.file = loaded
	return s, nil
}

func defaultStoreFile() storeFile {
	return storeFile{
		DefaultProvider: ProviderBase,
		Providers: map[string]ProviderConfig{
			ProviderBase:       {APIKey: "", Model: PlaceholderModel},
			ProviderOpenRouter: {APIKey: "", Model: PlaceholderModel},
			ProviderGemini:     {APIKey: "", Model: PlaceholderModel},
		},
	}
}

// Save writes the store back to disk, creating the directory if needed.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrapf(err, "could not create config directory")
	}
	data, err := json.MarshalIndent(s.file, "", "    ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize config")
	}
	return os.WriteFile(s.path, data, 0644)
}

// Get returns the configuration for a provider id.
func (s *Store) Get(providerID string) (ProviderConfig, error) {
	pc, ok := s.file.Providers[providerID]
	if !ok {
		return ProviderConfig{}, errors.New("provider '%s' not found. Available: %s", providerID, s.providerList())
	}
	return pc, nil
}

// Set updates one field ("api_key" or "model") for a provider id.
func (s *Store) Set(providerID, field, value string) error {
	pc, ok := s.file.Providers[providerID]
	if !ok {
		return errors.New("provider '%s' not found. Available: %s", providerID, s.providerList())
	}
	switch field {
	case "api_key":
		pc.APIKey = value
	case "model":
		pc.Model = value
	default:
		return errors.New("unknown setting '%s'", field)
	}
	s.file.Providers[providerID] = pc
	return nil
}

// DefaultProvider returns the provider id used when /chat starts.
func (s *Store) DefaultProvider() string {
	return s.file.DefaultProvider
}

// SetDefaultProvider switches the default provider. The id must be one of
// the configured providers.
func (s *Store) SetDefaultProvider(providerID string) error {
	if _, ok := s.file.Providers[providerID]; !ok {
		return errors.New("provider '%s' not found. Available: %s", providerID, s.providerList())
	}
	s.file.DefaultProvider = providerID
	return nil
}

// Providers returns the configured provider ids in sorted order.
func (s *Store) Providers() []string {
	ids := make([]string, 0, len(s.file.Providers))
	for id := range s.file.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) providerList() string {
	out := ""
	for i, id := range s.Providers() {
		if i > 0 {
			out += ", "
		}
		out += id
	}
	return out
}
