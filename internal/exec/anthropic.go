package exec

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/kestrelops/hive/pkg/models"
)

// AnthropicConfig contains configuration for the API-backed executor.
type AnthropicConfig struct {
	// Model is the Claude model name.
	Model string
	// APIKey is the Anthropic API key. If empty, ANTHROPIC_API_KEY is used.
	APIKey string
	// UseBedrock routes requests through AWS Bedrock instead of the
	// direct API.
	UseBedrock bool
	// AWSRegion is the Bedrock region, e.g. "us-west-2".
	AWSRegion string
	// MaxTokens caps the response size. Defaults to 4096.
	MaxTokens int64
}

// Anthropic executes tasks by sending the task brief to the Claude
// Messages API and collecting the text response as the task output.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic creates an API-backed executor.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.UseBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_5_20250929
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Execute sends one task brief to the model.
func (a *Anthropic) Execute(ctx context.Context, task *models.Task, agent *models.Agent) (*models.TaskResult, error) {
	system := fmt.Sprintf(
		"You are a %s agent in a work swarm. Complete the assigned %s task and reply with the finished result only.",
		agent.ID.Type, task.Type,
	)
	prompt := task.Instructions
	if prompt == "" {
		prompt = task.Description
	}
	if prompt == "" {
		prompt = task.Name
	}

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &models.TaskResult{
			Success: false,
			Error:   fmt.Sprintf("messages api: %v", err),
		}, nil
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	output := sb.String()

	return &models.TaskResult{
		Success:   true,
		Output:    output,
		Artifacts: map[string]string{task.Name: output},
	}, nil
}
