package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"langid-backend/pkg/api"
	"langid-backend/plugin/shared"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

const FitterCommandEnv = "FITTER_COMMAND"

// PluginFitter runs the fit inside a separate plugin process (cmd/fitter-plugin)
// so a crashing training program cannot take the trainer down with it.
type PluginFitter struct {
	PluginPath string
	Command    []string
}

func NewPluginFitter(pluginPath string, command []string) *PluginFitter {
	return &PluginFitter{PluginPath: pluginPath, Command: command}
}

func (f *PluginFitter) Fit(ctx context.Context, job api.FitJob) error {
	cmd := exec.Command(f.PluginPath)
	cmd.Env = append(os.Environ(), FitterCommandEnv+"="+strings.Join(f.Command, " "))

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  shared.Handshake,
		Plugins:          shared.PluginMap,
		Cmd:              cmd,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolNetRPC},
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "fitter-plugin",
			Output: os.Stderr,
			Level:  hclog.Info,
		}),
	})
	defer client.Kill()

	rpcClient, err := client.Client()
	if err != nil {
		return fmt.Errorf("error establishing RPC connection: %w", err)
	}

	raw, err := rpcClient.Dispense(shared.FitterPluginName)
	if err != nil {
		return fmt.Errorf("error dispensing '%s': %w", shared.FitterPluginName, err)
	}

	fitter, ok := raw.(shared.Fitter)
	if !ok {
		return fmt.Errorf("dispensed interface '%s' is not of expected type shared.Fitter (actual type: %T)", shared.FitterPluginName, raw)
	}

	type result struct {
		resp api.FitResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := fitter.Fit(job)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		slog.Warn("cancelling fitter plugin", "error", ctx.Err())
		client.Kill()
		return fmt.Errorf("fitter cancelled: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("fitter plugin failed: %w", res.err)
		}
		slog.Info("fitter plugin finished", "output_dir", res.resp.OutputDir)
		return nil
	}
}

// PluginAdapter exposes a context-aware Fitter through the plugin interface.
type PluginAdapter struct {
	Fitter Fitter
}

func (a *PluginAdapter) Fit(job api.FitJob) (api.FitResponse, error) {
	if err := a.Fitter.Fit(context.Background(), job); err != nil {
		return api.FitResponse{}, err
	}
	return api.FitResponse{OutputDir: job.OutputDir}, nil
}
