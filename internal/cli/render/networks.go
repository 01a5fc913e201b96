package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/catapult/internal/usecase"
)

// NetworksRenderer renders the configured RPC endpoints
type NetworksRenderer struct {
	out io.Writer
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer) *NetworksRenderer {
	return &NetworksRenderer{out: out}
}

// RenderNetworks prints one line per network
func (r *NetworksRenderer) RenderNetworks(result *usecase.ListNetworksResult) {
	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured, add them under [rpc_endpoints] in catapult.toml")
		return
	}

	headerStyle.Fprintln(r.out, "🌐 Networks:")
	for _, n := range result.Networks {
		marker := "  "
		if n.Current {
			marker = successStyle.Sprint("→ ")
		}
		if n.Error != nil {
			fmt.Fprintf(r.out, "%s%-16s %s\n", marker, unitStyle.Sprint(n.Name), failureStyle.Sprintf("✗ %v", n.Error))
			continue
		}
		fmt.Fprintf(r.out, "%s%-16s %s\n", marker, unitStyle.Sprint(n.Name), faintStyle.Sprintf("chain %d", n.ChainID))
	}
}
