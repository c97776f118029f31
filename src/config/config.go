package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DefaultPath      = "config.json"
	ConfigPathEnvVar = "QUIZ_OVERLAY_CONFIG"
	APIKeyEnvVar     = "API_KEY"
)

// RequiredKeys must be present and non-empty for startup to proceed.
var RequiredKeys = []string{
	"api.api_key",
	"api.api_endpoint",
	"ocr.language",
	"excel.file_path",
	"hotkey.trigger_key",
}

// Manager holds the raw JSON configuration document and persists every
// mutation back to the file it was loaded from. Values are addressed by
// dotted path ("api.api_key").
type Manager struct {
	mu   sync.RWMutex
	path string
	doc  []byte
}

// Load reads the configuration file. Resolution order for the path:
// explicit argument, QUIZ_OVERLAY_CONFIG (optionally set via a .env file
// next to the executable), then config.json in the working directory.
func Load(path string) (*Manager, error) {
	if envPath := resolveDotenv(); envPath != "" {
		_ = godotenv.Load(envPath)
	}
	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("config file %s is not valid JSON", path)
	}

	m := &Manager{path: path, doc: data}

	// Secrets may be supplied via environment instead of the file.
	if key := strings.TrimSpace(os.Getenv(APIKeyEnvVar)); key != "" {
		m.doc, _ = sjson.SetBytes(m.doc, "api.api_key", key)
	}

	return m, nil
}

func resolveDotenv() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	envFile := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(envFile); err == nil {
		return envFile
	}
	return ""
}

// Path returns the file this configuration was loaded from.
func (m *Manager) Path() string { return m.path }

// Reload re-reads the configuration file in place.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("config file %s is not valid JSON", m.path)
	}
	m.doc = data
	return nil
}

func (m *Manager) get(path string) gjson.Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return gjson.GetBytes(m.doc, path)
}

// GetString returns the string at the dotted path, or def when absent.
func (m *Manager) GetString(path, def string) string {
	if v := m.get(path); v.Exists() {
		return v.String()
	}
	return def
}

// GetInt returns the integer at the dotted path, or def when absent.
func (m *Manager) GetInt(path string, def int) int {
	if v := m.get(path); v.Exists() {
		return int(v.Int())
	}
	return def
}

// GetFloat returns the float at the dotted path, or def when absent.
func (m *Manager) GetFloat(path string, def float64) float64 {
	if v := m.get(path); v.Exists() {
		return v.Float()
	}
	return def
}

// GetBool returns the boolean at the dotted path, or def when absent.
func (m *Manager) GetBool(path string, def bool) bool {
	if v := m.get(path); v.Exists() {
		return v.Bool()
	}
	return def
}

// GetStrings returns the string array at the dotted path, or nil.
func (m *Manager) GetStrings(path string) []string {
	v := m.get(path)
	if !v.Exists() || !v.IsArray() {
		return nil
	}
	var out []string
	for _, el := range v.Array() {
		out = append(out, el.String())
	}
	return out
}

// Keys returns the object keys under the dotted path, in document order.
func (m *Manager) Keys(path string) []string {
	v := m.get(path)
	if !v.Exists() || !v.IsObject() {
		return nil
	}
	var keys []string
	v.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// Set updates the value at the dotted path and immediately rewrites the
// whole configuration file. Writers are rare (drag release, hotkey update,
// reload) and effectively user-serialized; the mutex only protects the
// in-memory document.
func (m *Manager) Set(path string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, err := sjson.SetBytes(m.doc, path, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	m.doc = doc
	if err := writeFileAtomic(m.path, m.doc); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	return nil
}

// writeFileAtomic replaces path via a rename so a crash mid-write never
// leaves a truncated config behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Validate reports the required keys that are missing or empty.
func (m *Manager) Validate() []string {
	var missing []string
	for _, key := range RequiredKeys {
		if strings.TrimSpace(m.GetString(key, "")) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
