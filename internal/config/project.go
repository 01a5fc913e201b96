package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

// LoadProjectConfig reads catapult.toml from projectRoot. .env and .env.local
// are loaded first so ${VAR} references in the file can be expanded; variables
// already set in the environment win.
func LoadProjectConfig(projectRoot string) (*config.ProjectConfig, error) {
	for _, envFile := range []string{".env", ".env.local"} {
		path := filepath.Join(projectRoot, envFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	path := filepath.Join(projectRoot, config.ProjectFileName)
	var project config.ProjectConfig
	meta, err := toml.DecodeFile(path, &project)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s not found in %s", config.ProjectFileName, projectRoot)
		}
		return nil, fmt.Errorf("failed to parse %s: %w", config.ProjectFileName, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), config.ProjectFileName)
	}

	expandProject(&project)
	return &project, nil
}

func expandProject(p *config.ProjectConfig) {
	p.Artifacts = os.ExpandEnv(p.Artifacts)
	p.Registry = os.ExpandEnv(p.Registry)
	p.Units = os.ExpandEnv(p.Units)
	p.ProxyArtifact = os.ExpandEnv(p.ProxyArtifact)
	if p.ProxyArtifact == "" {
		p.ProxyArtifact = config.DefaultProxyArtifact
	}
	p.AdminArtifact = os.ExpandEnv(p.AdminArtifact)
	if p.AdminArtifact == "" {
		p.AdminArtifact = config.DefaultAdminArtifact
	}

	for name, url := range p.RPCEndpoints {
		p.RPCEndpoints[name] = os.ExpandEnv(url)
	}
	for role, account := range p.Accounts {
		account.PrivateKey = os.ExpandEnv(account.PrivateKey)
		account.Address = os.ExpandEnv(account.Address)
		p.Accounts[role] = account
	}
}
