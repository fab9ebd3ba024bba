// internal/commands/models.go
package mmrag

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/models"
)

// modelsCmd groups model management commands for Ollama hosts.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Check or pull the models the index needs",
}

var modelsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether the configured models are available on the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, reqs, err := modelsHost()
		if err != nil {
			return err
		}
		statuses, err := host.Check(cmd.Context(), reqs)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), models.Render(host.Name, statuses))
		if missing := models.Missing(statuses); len(missing) > 0 {
			return fmt.Errorf("%d model(s) missing on %s; run 'mmrag models pull'", len(missing), host.Name)
		}
		return nil
	},
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull configured models that are missing on the host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, reqs, err := modelsHost()
		if err != nil {
			return err
		}
		statuses, err := host.Check(cmd.Context(), reqs)
		if err != nil {
			return err
		}
		for _, model := range models.Missing(statuses) {
			cmd.Printf("pulling %s on %s\n", model, host.Name)
			if err := host.PullModel(cmd.Context(), model); err != nil {
				return err
			}
		}
		cmd.Println("all models available")
		return nil
	},
}

func modelsHost() (*models.OllamaHost, []models.Requirement, error) {
	cfg := GetConfig()
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}
	if cfg.ProviderType() != appconfig.ProviderOllama {
		return nil, nil, fmt.Errorf("model management is only supported for the ollama provider")
	}
	if err := cfg.RequireModels(); err != nil {
		return nil, nil, err
	}
	return models.NewOllamaHost(cfg), models.Required(cfg), nil
}

func init() {
	modelsCmd.AddCommand(modelsCheckCmd, modelsPullCmd)
	rootCmd.AddCommand(modelsCmd)
}
