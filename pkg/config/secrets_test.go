package config

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSSMClient struct {
	mock.Mock
}

func (m *MockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssm.GetParameterOutput), args.Error(1)
}

func parameterOutput(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{
		Parameter: &types.Parameter{Value: aws.String(value)},
	}
}

func byName(name string) interface{} {
	return mock.MatchedBy(func(input *ssm.GetParameterInput) bool {
		return *input.Name == name && *input.WithDecryption
	})
}

func TestResolveSecrets(t *testing.T) {
	cfg := &Config{
		Models: []ModelConfig{
			{ID: "a", APIKey: "ssm:/event-creator/openai-key"},
			{ID: "b", APIKey: "plain"},
		},
		Calendar: CalendarConfig{Password: "ssm:/event-creator/caldav-password"},
	}
	require.True(t, cfg.HasSecrets())

	mockSSM := new(MockSSMClient)
	mockSSM.On("GetParameter", mock.Anything, byName("/event-creator/openai-key")).Return(parameterOutput("sk-123"), nil)
	mockSSM.On("GetParameter", mock.Anything, byName("/event-creator/caldav-password")).Return(parameterOutput("hunter2"), nil)

	err := cfg.ResolveSecrets(context.Background(), mockSSM)
	require.NoError(t, err)

	assert.Equal(t, "sk-123", cfg.Models[0].APIKey)
	assert.Equal(t, "plain", cfg.Models[1].APIKey)
	assert.Equal(t, "hunter2", cfg.Calendar.Password)
	assert.False(t, cfg.HasSecrets())
	mockSSM.AssertExpectations(t)
}

func TestResolveSecrets_NoSecrets(t *testing.T) {
	cfg := &Config{Calendar: CalendarConfig{Password: "plain"}}
	assert.False(t, cfg.HasSecrets())

	mockSSM := new(MockSSMClient)
	require.NoError(t, cfg.ResolveSecrets(context.Background(), mockSSM))
	mockSSM.AssertNotCalled(t, "GetParameter", mock.Anything, mock.Anything)
}

func TestResolveSecrets_EmptyValue(t *testing.T) {
	cfg := &Config{Calendar: CalendarConfig{Token: "ssm:/event-creator/token"}}

	mockSSM := new(MockSSMClient)
	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(parameterOutput(""), nil)

	err := cfg.ResolveSecrets(context.Background(), mockSSM)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestResolveSecrets_APIError(t *testing.T) {
	cfg := &Config{Calendar: CalendarConfig{Token: "ssm:/event-creator/token"}}

	mockSSM := new(MockSSMClient)
	mockSSM.On("GetParameter", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	err := cfg.ResolveSecrets(context.Background(), mockSSM)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "/event-creator/token")
	assert.Equal(t, "ssm:/event-creator/token", cfg.Calendar.Token)
}
