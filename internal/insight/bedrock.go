package insight

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/bedrockruntime"
	"github.com/sirupsen/logrus"

	"github.com/insightloop/dataqual/pkg/constants"
	"github.com/insightloop/dataqual/pkg/errors"
)

// BedrockConfig holds configuration for the AWS Bedrock insight generator
type BedrockConfig struct {
	Region          string  `json:"region"`
	ModelID         string  `json:"model_id"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
	AccessKeyID     string  `json:"access_key_id"`
	SecretAccessKey string  `json:"secret_access_key"`
	SessionToken    string  `json:"session_token,omitempty"`
	Endpoint        string  `json:"endpoint,omitempty"`
}

// BedrockGenerator implements Generator against the Bedrock runtime API
// using the Anthropic messages format.
type BedrockGenerator struct {
	config *BedrockConfig
	client *bedrockruntime.BedrockRuntime
	logger *logrus.Logger
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewBedrockGenerator creates a Bedrock-backed insight generator.
func NewBedrockGenerator(config *BedrockConfig, logger *logrus.Logger) (*BedrockGenerator, error) {
	if config == nil {
		return nil, errors.NewInsightError(errors.CodeInvalidConfig, "Bedrock config cannot be nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	if config.ModelID == "" {
		config.ModelID = constants.DefaultInsightModelID
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = constants.DefaultInsightMaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = constants.DefaultInsightTemperature
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKeyID,
			config.SecretAccessKey,
			config.SessionToken,
		)
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeInsight, "SESSION_FAILED", "Failed to create AWS session")
	}

	return &BedrockGenerator{
		config: config,
		client: bedrockruntime.New(sess),
		logger: logger,
	}, nil
}

// GenerateInsight invokes the configured model with the given prompt and
// returns its raw text response.
func (g *BedrockGenerator) GenerateInsight(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        g.config.MaxTokens,
		Temperature:      g.config.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeInsight, errors.CodeInsightFailed, "Failed to encode model request")
	}

	start := time.Now()
	output, err := g.client.InvokeModelWithContext(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.config.ModelID),
		ContentType: aws.String(constants.MimeTypeJSON),
		Accept:      aws.String(constants.MimeTypeJSON),
		Body:        body,
	})
	if err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeInsight, errors.CodeInsightFailed, "Bedrock invocation failed")
	}

	var response anthropicResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", errors.WrapError(err, errors.ErrorTypeInsight, errors.CodeInsightUnparsable, "Failed to decode model response")
	}

	if len(response.Content) == 0 || response.Content[0].Text == "" {
		return "", errors.NewInsightError(errors.CodeInsightUnparsable, "Model returned empty content")
	}

	g.logger.WithFields(logrus.Fields{
		"model":    g.config.ModelID,
		"duration": time.Since(start),
	}).Debug("Bedrock invocation completed")

	return response.Content[0].Text, nil
}
