package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/agentchat/internal/config"
	"github.com/cloo-solutions/agentchat/internal/database"
	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/cloo-solutions/agentchat/internal/repository"
	"github.com/cloo-solutions/agentchat/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func AgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agents",
		Long:  "Create and list chat agents",
	}

	cmd.AddCommand(AgentCreateCmd())
	cmd.AddCommand(AgentListCmd())

	return cmd
}

func AgentCreateCmd() *cobra.Command {
	var (
		tone         string
		instructions string
		model        string
		temperature  float32
		maxTokens    int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new agent",
		Long:  "Create a new chat agent with the specified name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAgentCreate(args[0], tone, instructions, model, temperature, maxTokens, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&tone, "tone", string(domain.AgentToneProfessional), "Agent tone (professional, friendly, casual, helpful, formal, enthusiastic)")
	cmd.Flags().StringVar(&instructions, "instructions", "", "Custom instructions appended to the system prompt")
	cmd.Flags().StringVar(&model, "model", "", "Completion model (defaults to the configured chat model)")
	cmd.Flags().Float32Var(&temperature, "temperature", 0.7, "Sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 500, "Maximum completion tokens")

	return cmd
}

func runAgentCreate(name, tone, instructions, model string, temperature float32, maxTokens int, outputFormat string) error {
	ctx := context.Background()

	cfg, pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if model == "" {
		model = cfg.ChatModel
	}

	uuidGen := &service.DefaultUUIDGenerator{}
	now := time.Now().UTC()
	agent := &domain.Agent{
		ID:                 uuidGen.NewString(),
		Name:               name,
		Tone:               domain.AgentTone(tone),
		CustomInstructions: instructions,
		Model:              model,
		Temperature:        temperature,
		MaxTokens:          maxTokens,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := domain.ValidateAgent(agent); err != nil {
		return fmt.Errorf("invalid agent: %w", err)
	}

	agentRepo := repository.NewAgentRepository(pool)
	if err := agentRepo.Create(ctx, agent); err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":         agent.ID,
			"name":       agent.Name,
			"tone":       agent.Tone,
			"model":      agent.Model,
			"created_at": agent.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Agent created: %s (%s)\n", agent.Name, agent.ID)
	}

	return nil
}

func AgentListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all agents",
		Long:  "List all chat agents in the system",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runAgentList(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runAgentList(outputFormat string) error {
	ctx := context.Background()

	_, pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	agentRepo := repository.NewAgentRepository(pool)
	agents, err := agentRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list agents: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(agents))
		for i, agent := range agents {
			data[i] = map[string]interface{}{
				"id":         agent.ID,
				"name":       agent.Name,
				"tone":       agent.Tone,
				"model":      agent.Model,
				"created_at": agent.CreatedAt,
			}
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		if len(agents) == 0 {
			fmt.Println("No agents found")
			return nil
		}
		fmt.Println("Agents:")
		for _, agent := range agents {
			fmt.Printf("  %s: %s (%s, created: %s)\n", agent.ID, agent.Name, agent.Tone, agent.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, pool, nil
}
