package shared

import (
	"net/rpc"

	"langid-backend/pkg/api"
)

// RPCClient is the host side of the Fitter plugin.
type RPCClient struct{ client *rpc.Client }

func (m *RPCClient) Fit(job api.FitJob) (api.FitResponse, error) {
	var resp api.FitResponse
	err := m.client.Call("Plugin.Fit", job, &resp)
	return resp, err
}

// RPCServer runs inside the plugin process and forwards to the real fitter.
type RPCServer struct {
	Impl Fitter
}

func (m *RPCServer) Fit(job api.FitJob, resp *api.FitResponse) error {
	v, err := m.Impl.Fit(job)
	*resp = v
	return err
}
