package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/counsel/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0

	// TokenEnvVar overrides any stored token when set.
	TokenEnvVar = "COUNSEL_TOKEN"
)

// Manager manages reading and writing credentials.toml in the .counsel/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .counsel/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{}
	mgr.ddm = dotdir.NewManager()

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version:  currentVersion,
				Profiles: make(map[string]ProfileCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Profiles == nil {
		creds.Profiles = make(map[string]ProfileCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetToken stores a bearer token for the given profile.
func (m *Manager) SetToken(profile, token string) error {
	if profile == "" {
		return errors.New("profile name is required")
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Profiles[profile] = ProfileCredential{Token: token}

	return m.Save(creds)
}

// GetToken returns the stored token for the given profile.
// Returns an empty string if no token is stored.
func (m *Manager) GetToken(profile string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Profiles[profile].Token, nil
}

// ResolveToken returns the token from COUNSEL_TOKEN if set, otherwise the
// stored token for profile.
func (m *Manager) ResolveToken(profile string) (string, error) {
	if tok := os.Getenv(TokenEnvVar); tok != "" {
		return tok, nil
	}
	return m.GetToken(profile)
}

// RemoveToken deletes the stored token for a profile.
func (m *Manager) RemoveToken(profile string) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Profiles, profile)

	return m.Save(creds)
}

// ListProfiles returns the names of profiles that have stored tokens.
func (m *Manager) ListProfiles() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	profiles := make([]string, 0, len(creds.Profiles))
	for name := range creds.Profiles {
		profiles = append(profiles, name)
	}

	sort.Strings(profiles)

	return profiles, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}
