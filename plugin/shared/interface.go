package shared

import (
	"net/rpc"

	"langid-backend/pkg/api"

	"github.com/hashicorp/go-plugin"
)

const FitterPluginName = "fitter"

var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "LANGID_FITTER_PLUGIN",
	MagicCookieValue: "fitter",
}

var PluginMap = map[string]plugin.Plugin{
	FitterPluginName: &FitterPlugin{},
}

// Fitter is the interface exposed across the plugin boundary. net/rpc has no
// notion of a context, so cancellation is done by killing the plugin process.
type Fitter interface {
	Fit(job api.FitJob) (api.FitResponse, error)
}

type FitterPlugin struct {
	Impl Fitter
}

func (p *FitterPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

func (*FitterPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}
