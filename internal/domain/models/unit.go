package models

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Default values applied by the unit loader when a declaration leaves them empty
const (
	DefaultSigner     = "deployer"
	DefaultInitMethod = "initialize"
)

// DefaultProxyAdmin is the registry name of the ProxyAdmin contract that
// administers every proxy on a network unless a unit names its own admin
const DefaultProxyAdmin = "DefaultProxyAdmin"

// ArgBuilder turns the proxy addresses of a unit's dependencies into the ordered
// argument list passed to its initializer. It must be pure: the same inputs
// always produce the same arguments.
type ArgBuilder func(deps map[string]common.Address) ([]any, error)

// DeploymentUnit is one upgradeable module: an implementation contract behind a
// transparent proxy, initialized once with arguments derived from the proxies
// of the units it depends on.
type DeploymentUnit struct {
	Name         string
	Contract     string
	Dependencies []string
	Tags         []string

	// From is the named account that signs the deployment
	From string
	// ProxyAdmin is the named account allowed to upgrade the proxy. Empty
	// means the network's shared ProxyAdmin contract, owned by the signer.
	ProxyAdmin string

	InitMethod    string
	InitArgs      []InitArg
	BuildInitArgs ArgBuilder

	Implementation *Implementation
}

// Implementation is the compiled contract a unit's proxy points at
type Implementation struct {
	Name             string
	ABI              abi.ABI
	Bytecode         []byte
	DeployedBytecode []byte
	Hash             common.Hash
}

// InitArgKind says how an initializer argument is resolved
type InitArgKind string

const (
	InitArgLiteral    InitArgKind = "literal"
	InitArgDependency InitArgKind = "dep"
	InitArgAccount    InitArgKind = "account"
)

// InitArg is one declared initializer argument, kept for display and audit
type InitArg struct {
	Kind  InitArgKind
	Value string
}

func (a InitArg) String() string {
	if a.Kind == InitArgLiteral || a.Kind == "" {
		return a.Value
	}
	return string(a.Kind) + ":" + a.Value
}

// DependsOn reports whether name is one of the unit's declared dependencies
func (u *DeploymentUnit) DependsOn(name string) bool {
	for _, dep := range u.Dependencies {
		if dep == name {
			return true
		}
	}
	return false
}

// HasTag reports whether the unit carries the given tag
func (u *DeploymentUnit) HasTag(tag string) bool {
	for _, t := range u.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ImplementationHash returns the hash of the unit's current implementation,
// or the zero hash when no implementation is attached.
func (u *DeploymentUnit) ImplementationHash() common.Hash {
	if u.Implementation == nil {
		return common.Hash{}
	}
	return u.Implementation.Hash
}

// Signer returns the account that signs this unit's transactions
func (u *DeploymentUnit) Signer() string {
	if u.From == "" {
		return DefaultSigner
	}
	return u.From
}

// UsesSharedAdmin reports whether the unit's proxy is administered by the
// network's ProxyAdmin contract rather than a named account
func (u *DeploymentUnit) UsesSharedAdmin() bool {
	return u.ProxyAdmin == ""
}
