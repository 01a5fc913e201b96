package unitfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/adapters/parameters"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
	"gopkg.in/yaml.v3"
)

// File is the deploy.yaml document
type File struct {
	Units []UnitConfig `yaml:"units"`
}

// UnitConfig declares one deployment unit
type UnitConfig struct {
	Name     string      `yaml:"name"`
	Contract string      `yaml:"contract,omitempty"`
	Deps     []string    `yaml:"deps,omitempty"`
	Tags     []string    `yaml:"tags,omitempty"`
	From     string      `yaml:"from,omitempty"`
	Proxy    ProxyConfig `yaml:"proxy,omitempty"`
	Init     InitConfig  `yaml:"init,omitempty"`
}

// ProxyConfig configures the transparent proxy of a unit. Without an admin
// the proxy is administered by the network's shared ProxyAdmin contract.
type ProxyConfig struct {
	Admin string `yaml:"admin,omitempty"`
}

// InitConfig configures the one-time initializer. A nil method means
// "initialize"; an empty method means the proxy is created without a call.
type InitConfig struct {
	Method *string     `yaml:"method,omitempty"`
	Args   []yaml.Node `yaml:"args,omitempty"`
}

// AccountResolver maps named accounts to addresses
type AccountResolver interface {
	ResolveAccount(ctx context.Context, role string) (common.Address, error)
}

// Loader reads deployment units from a YAML file and attaches their artifacts
type Loader struct {
	path      string
	artifacts usecase.ArtifactStore
	accounts  AccountResolver
	log       *slog.Logger
}

// NewLoader creates a new unit file loader
func NewLoader(path string, artifacts usecase.ArtifactStore, accounts AccountResolver, log *slog.Logger) *Loader {
	return &Loader{path: path, artifacts: artifacts, accounts: accounts, log: log}
}

// Path returns the units file location
func (l *Loader) Path() string {
	return l.path
}

// LoadUnits parses the units file. All declaration problems are reported
// together; dependency graph problems are left to the resolver.
func (l *Loader) LoadUnits(ctx context.Context) ([]*models.DeploymentUnit, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read units file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse units file %s: %w", l.path, err)
	}
	if len(file.Units) == 0 {
		return nil, fmt.Errorf("%w: %s declares no units", domain.ErrInvalidUnit, l.path)
	}

	var errs *multierror.Error
	units := make([]*models.DeploymentUnit, 0, len(file.Units))
	for i, cfg := range file.Units {
		unit, err := l.buildUnit(ctx, cfg)
		if err != nil {
			label := cfg.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i+1)
			}
			errs = multierror.Append(errs, fmt.Errorf("unit %s: %w", label, err))
			continue
		}
		units = append(units, unit)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidUnit, err)
	}

	l.log.Debug("loaded units", "path", l.path, "count", len(units))
	return units, nil
}

func (l *Loader) buildUnit(ctx context.Context, cfg UnitConfig) (*models.DeploymentUnit, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if cfg.Name == models.DefaultProxyAdmin {
		return nil, fmt.Errorf("%s is reserved for the shared proxy admin", cfg.Name)
	}

	unit := &models.DeploymentUnit{
		Name:         cfg.Name,
		Contract:     lo.Ternary(cfg.Contract != "", cfg.Contract, cfg.Name),
		Dependencies: lo.Uniq(cfg.Deps),
		Tags:         lo.Ternary(len(cfg.Tags) > 0, cfg.Tags, []string{cfg.Name}),
		From:         lo.Ternary(cfg.From != "", cfg.From, models.DefaultSigner),
		InitMethod:   models.DefaultInitMethod,
	}
	unit.ProxyAdmin = cfg.Proxy.Admin
	if unit.ProxyAdmin == unit.From {
		// a transparent proxy never forwards its admin's calls
		return nil, fmt.Errorf("proxy admin %s also signs the deployment and could not call through the proxy; omit proxy.admin to use the shared ProxyAdmin", unit.ProxyAdmin)
	}
	if cfg.Init.Method != nil {
		unit.InitMethod = *cfg.Init.Method
	}

	impl, err := l.artifacts.Load(ctx, unit.Contract)
	if err != nil {
		return nil, err
	}
	unit.Implementation = impl

	var inputs abi.Arguments
	if unit.InitMethod != "" {
		method, ok := impl.ABI.Methods[unit.InitMethod]
		if !ok {
			return nil, fmt.Errorf("contract %s has no %s method", unit.Contract, unit.InitMethod)
		}
		inputs = method.Inputs
	}
	if len(cfg.Init.Args) != len(inputs) {
		return nil, fmt.Errorf("%s expects %d arguments, %d given", lo.Ternary(unit.InitMethod != "", unit.InitMethod, "no initializer"), len(inputs), len(cfg.Init.Args))
	}

	var errs *multierror.Error
	resolved := make([]resolvedArg, len(cfg.Init.Args))
	unit.InitArgs = make([]models.InitArg, len(cfg.Init.Args))
	for i := range cfg.Init.Args {
		arg, err := parseArg(&cfg.Init.Args[i])
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("init arg %d: %w", i+1, err))
			continue
		}
		unit.InitArgs[i] = arg

		r, err := l.resolveArg(ctx, unit, arg, inputs[i].Type)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("init arg %d (%s): %w", i+1, arg, err))
			continue
		}
		resolved[i] = r
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	unit.BuildInitArgs = buildArgs(unit.Name, resolved)
	return unit, nil
}

// resolvedArg is either a fixed value or the name of a dependency whose proxy
// address is substituted at deploy time
type resolvedArg struct {
	value any
	dep   string
}

func (l *Loader) resolveArg(ctx context.Context, unit *models.DeploymentUnit, arg models.InitArg, typ abi.Type) (resolvedArg, error) {
	switch arg.Kind {
	case models.InitArgDependency:
		if !unit.DependsOn(arg.Value) {
			return resolvedArg{}, fmt.Errorf("%s is not a declared dependency", arg.Value)
		}
		if typ.T != abi.AddressTy {
			return resolvedArg{}, fmt.Errorf("dependency reference needs an address parameter, got %s", typ.String())
		}
		return resolvedArg{dep: arg.Value}, nil

	case models.InitArgAccount:
		if l.accounts == nil {
			return resolvedArg{}, fmt.Errorf("no accounts configured")
		}
		addr, err := l.accounts.ResolveAccount(ctx, arg.Value)
		if err != nil {
			return resolvedArg{}, err
		}
		v, err := parameters.Coerce(typ, addr)
		if err != nil {
			return resolvedArg{}, err
		}
		return resolvedArg{value: v}, nil

	default:
		v, err := parameters.Coerce(typ, arg.Value)
		if err != nil {
			return resolvedArg{}, err
		}
		return resolvedArg{value: v}, nil
	}
}

func parseArg(node *yaml.Node) (models.InitArg, error) {
	if node.Kind != yaml.ScalarNode {
		return models.InitArg{}, fmt.Errorf("line %d: only scalar arguments are supported", node.Line)
	}
	value := node.Value
	if node.ShortTag() == "!!str" {
		if ref, ok := strings.CutPrefix(value, "dep:"); ok {
			return models.InitArg{Kind: models.InitArgDependency, Value: strings.TrimSpace(ref)}, nil
		}
		if ref, ok := strings.CutPrefix(value, "account:"); ok {
			return models.InitArg{Kind: models.InitArgAccount, Value: strings.TrimSpace(ref)}, nil
		}
	}
	return models.InitArg{Kind: models.InitArgLiteral, Value: value}, nil
}

// buildArgs returns a pure function that substitutes dependency addresses
func buildArgs(unit string, resolved []resolvedArg) models.ArgBuilder {
	return func(deps map[string]common.Address) ([]any, error) {
		args := make([]any, len(resolved))
		for i, r := range resolved {
			if r.dep == "" {
				args[i] = r.value
				continue
			}
			addr, ok := deps[r.dep]
			if !ok {
				return nil, &domain.DependencyNotReadyError{Unit: unit, Dependency: r.dep}
			}
			args[i] = addr
		}
		return args, nil
	}
}
