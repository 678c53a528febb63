package main

import (
	"log"
	"os"
	"strings"

	"langid-backend/internal/trainer"
	"langid-backend/plugin/shared"

	"github.com/hashicorp/go-plugin"
)

// Started by trainer.PluginFitter; the training command arrives in
// FITTER_COMMAND.
func main() {
	command := strings.Fields(os.Getenv(trainer.FitterCommandEnv))
	if len(command) == 0 {
		log.Fatalf("%s must be set", trainer.FitterCommandEnv)
	}

	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: shared.Handshake,
		Plugins: map[string]plugin.Plugin{
			shared.FitterPluginName: &shared.FitterPlugin{
				Impl: &trainer.PluginAdapter{Fitter: trainer.NewCommandFitter(command)},
			},
		},
	})
}
