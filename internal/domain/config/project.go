package config

// ProjectConfig represents the catapult.toml project file
type ProjectConfig struct {
	Artifacts     string                   `toml:"artifacts"`
	Registry      string                   `toml:"registry"`
	Units         string                   `toml:"units"`
	ProxyArtifact string                   `toml:"proxy_artifact"`
	AdminArtifact string                   `toml:"proxy_admin_artifact"`
	RPCEndpoints  map[string]string        `toml:"rpc_endpoints"`
	Accounts      map[string]AccountConfig `toml:"accounts"`
}

// AccountConfig represents an [accounts.<role>] section. An account with a
// private key can sign; an account with only an address is a reference.
type AccountConfig struct {
	PrivateKey string `toml:"private_key,omitempty"`
	Address    string `toml:"address,omitempty"`
}

// Defaults used when catapult.toml leaves a field empty
const (
	DefaultArtifactsDir  = "out"
	DefaultUnitsFile     = "deploy.yaml"
	DefaultProxyArtifact = "TransparentUpgradeableProxy"
	DefaultAdminArtifact = "ProxyAdmin"
	ProjectFileName      = "catapult.toml"
)

// DataDirName is the default registry directory under the project root
const DataDirName = ".catapult"
