package contracts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// Repository finds compiled artifacts under the project's artifacts directory.
// Foundry (out/<File>.sol/<Name>.json) and Hardhat
// (artifacts/contracts/<File>.sol/<Name>.json) layouts are both understood.
type Repository struct {
	artifactsDir string
	log          *slog.Logger
	mu           sync.Mutex
	index        map[string][]string // contract name -> artifact paths
	cache        map[string]*models.Implementation
}

// NewRepository creates a new artifact repository rooted at artifactsDir
func NewRepository(artifactsDir string, log *slog.Logger) *Repository {
	return &Repository{
		artifactsDir: artifactsDir,
		log:          log,
		cache:        make(map[string]*models.Implementation),
	}
}

// Load returns the implementation for name. Name is either a contract name or
// a path to an artifact file.
func (r *Repository) Load(ctx context.Context, name string) (*models.Implementation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if impl, ok := r.cache[name]; ok {
		return impl, nil
	}

	path, err := r.locate(name)
	if err != nil {
		return nil, err
	}

	impl, err := ReadArtifact(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(name, ".json") {
		impl.Name = strings.TrimSuffix(filepath.Base(name), ".json")
	} else {
		impl.Name = name
	}

	r.log.Debug("loaded artifact", "contract", impl.Name, "path", path, "hash", impl.Hash.Hex())
	r.cache[name] = impl
	return impl, nil
}

func (r *Repository) locate(name string) (string, error) {
	if strings.HasSuffix(name, ".json") {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.artifactsDir, name)
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("artifact %s: %w", name, domain.ErrNotFound)
		}
		return path, nil
	}

	if err := r.buildIndex(); err != nil {
		return "", err
	}
	paths := r.index[name]
	switch len(paths) {
	case 0:
		return "", fmt.Errorf("artifact for contract %s in %s: %w", name, r.artifactsDir, domain.ErrNotFound)
	case 1:
		return paths[0], nil
	default:
		return "", fmt.Errorf("contract name %s is ambiguous, use an artifact path instead: %s", name, strings.Join(paths, ", "))
	}
}

func (r *Repository) buildIndex() error {
	if r.index != nil {
		return nil
	}
	if _, err := os.Stat(r.artifactsDir); err != nil {
		return fmt.Errorf("artifacts directory %s not found; compile the contracts first", r.artifactsDir)
	}

	index := make(map[string][]string)
	err := filepath.WalkDir(r.artifactsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		base := d.Name()
		if filepath.Ext(base) != ".json" || strings.HasSuffix(base, ".dbg.json") {
			return nil
		}
		name := strings.TrimSuffix(base, ".json")
		index[name] = append(index[name], path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index artifacts: %w", err)
	}
	r.index = index
	return nil
}

// ReadArtifact parses an artifact file into an implementation. The
// implementation hash is the keccak256 of the runtime bytecode, falling back
// to the creation bytecode when the artifact has no runtime code.
func ReadArtifact(path string) (*models.Implementation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var artifact models.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	if !artifact.Bytecode.HasCode() {
		return nil, fmt.Errorf("%w: artifact %s has no bytecode (abstract contract or interface?)", domain.ErrInvalidUnit, path)
	}
	if strings.Contains(artifact.Bytecode.Object, "__") {
		return nil, fmt.Errorf("%w: artifact %s has unlinked library references", domain.ErrInvalidUnit, path)
	}

	parsed, err := abi.JSON(bytes.NewReader(artifact.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI in %s: %w", path, err)
	}

	impl := &models.Implementation{
		ABI:              parsed,
		Bytecode:         common.FromHex(artifact.Bytecode.Object),
		DeployedBytecode: common.FromHex(artifact.DeployedBytecode.Object),
	}
	code := impl.DeployedBytecode
	if len(code) == 0 {
		code = impl.Bytecode
	}
	impl.Hash = crypto.Keccak256Hash(code)
	return impl, nil
}
