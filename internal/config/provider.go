package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

// EnvPrefix prefixes every environment override, e.g. CATAPULT_NETWORK
const EnvPrefix = "CATAPULT"

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	project, err := LoadProjectConfig(projectRoot)
	if err != nil {
		return nil, err
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        resolvePath(projectRoot, lo.Ternary(project.Registry != "", project.Registry, config.DataDirName)),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		Timeout:        v.GetDuration("timeout"),
		DryRun:         v.GetBool("dry_run"),
		Tags:           splitList(v.GetStringSlice("tags")),
		UnitsFile:      resolvePath(projectRoot, lo.CoalesceOrEmpty(v.GetString("config"), project.Units, config.DefaultUnitsFile)),
		ArtifactsDir:   resolvePath(projectRoot, lo.Ternary(project.Artifacts != "", project.Artifacts, config.DefaultArtifactsDir)),
		Project:        project,
	}

	if networkName := v.GetString("network"); networkName != "" {
		network, err := ResolveNetwork(project, networkName)
		if err != nil {
			return nil, err
		}
		cfg.Network = network
	}

	return cfg, nil
}

// ResolveNetwork looks up a named RPC endpoint. A value that is itself a URL
// is accepted as an unnamed endpoint.
func ResolveNetwork(project *config.ProjectConfig, name string) (*config.Network, error) {
	if url, ok := project.RPCEndpoints[name]; ok {
		if url == "" {
			return nil, fmt.Errorf("network '%s' has an empty RPC URL; is its environment variable set?", name)
		}
		return &config.Network{Name: name, RPCURL: url}, nil
	}
	if strings.Contains(name, "://") {
		return &config.Network{Name: "custom", RPCURL: name}, nil
	}
	known := lo.Keys(project.RPCEndpoints)
	slices.Sort(known)
	if len(known) == 0 {
		return nil, fmt.Errorf("network '%s' not found: %s has no [rpc_endpoints]", name, config.ProjectFileName)
	}
	return nil, fmt.Errorf("network '%s' not found in [rpc_endpoints] (known: %s)", name, strings.Join(known, ", "))
}

// FindProjectRoot walks up from current directory to find catapult.toml
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findProjectRootFrom(dir)
}

func findProjectRootFrom(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, config.ProjectFileName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a catapult project (%s not found)", config.ProjectFileName)
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config.local")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, config.DataDirName))

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("timeout", "5m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("dry_run", false)
	v.SetDefault("project_root", projectRoot)

	// missing file is fine
	_ = v.ReadInConfig()

	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				panic(err)
			}
		})
	}

	return v
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// splitList accepts both repeated flags and comma separated env values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return lo.Uniq(out)
}
