package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SecretPrefix marks a value that must be fetched from AWS SSM Parameter Store
const SecretPrefix = "ssm:"

// SSMParameterGetter is the subset of the SSM client used to resolve secrets
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// NewSSMClient builds an SSM client from the default AWS credential chain
func NewSSMClient(ctx context.Context) (*ssm.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return ssm.NewFromConfig(awsCfg), nil
}

// HasSecrets reports whether any value refers to Parameter Store
func (c *Config) HasSecrets() bool {
	return len(c.secretFields()) > 0
}

// ResolveSecrets replaces every ssm:/path value with the decrypted parameter
func (c *Config) ResolveSecrets(ctx context.Context, client SSMParameterGetter) error {
	for _, field := range c.secretFields() {
		name := strings.TrimPrefix(*field, SecretPrefix)
		value, err := getParameter(ctx, client, name)
		if err != nil {
			return err
		}
		*field = value
	}
	return nil
}

func (c *Config) secretFields() []*string {
	candidates := []*string{
		&c.Calendar.Password,
		&c.Calendar.Credentials,
		&c.Calendar.Token,
	}
	for i := range c.Models {
		candidates = append(candidates, &c.Models[i].APIKey)
	}

	var fields []*string
	for _, field := range candidates {
		if strings.HasPrefix(*field, SecretPrefix) {
			fields = append(fields, field)
		}
	}
	return fields
}

func getParameter(ctx context.Context, client SSMParameterGetter, name string) (string, error) {
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("parameter %s is empty", name)
	}

	return *result.Parameter.Value, nil
}

// ResolveSecretsFromSSM connects to Parameter Store only when the config
// references it
func (c *Config) ResolveSecretsFromSSM(ctx context.Context) error {
	if !c.HasSecrets() {
		return nil
	}

	client, err := NewSSMClient(ctx)
	if err != nil {
		return err
	}
	return c.ResolveSecrets(ctx, client)
}
