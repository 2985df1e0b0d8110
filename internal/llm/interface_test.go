// internal/llm/interface_test.go
package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	initErr error
	config  map[string]string
}

func (p *fakeProvider) Initialize(config map[string]string) error {
	p.config = config
	return p.initErr
}

func (p *fakeProvider) GetName() string              { return "fake" }
func (p *fakeProvider) GetSupportedModels() []string { return []string{"fake-1"} }

func (p *fakeProvider) CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return &CompletionResponse{Text: "ok"}, nil
}

func TestGetProviderInitializesFromRegistry(t *testing.T) {
	var created *fakeProvider
	Register("fake-test", func() Provider {
		created = &fakeProvider{}
		return created
	})

	cfg := map[string]string{"api_key": "k"}
	provider, err := GetProvider("fake-test", cfg)
	require.NoError(t, err)
	assert.Same(t, Provider(created), provider)
	assert.Equal(t, cfg, created.config)
}

func TestGetProviderUnknown(t *testing.T) {
	_, err := GetProvider("never-registered", nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestGetProviderInitFailure(t *testing.T) {
	Register("fake-broken", func() Provider {
		return &fakeProvider{initErr: errors.New("missing key")}
	})

	_, err := GetProvider("fake-broken", map[string]string{})
	assert.Error(t, err)
}

func TestGetSupportedModelsForProvider(t *testing.T) {
	Register("fake-models", func() Provider { return &fakeProvider{} })

	models, err := GetSupportedModelsForProvider("fake-models")
	require.NoError(t, err)
	assert.Equal(t, []string{"fake-1"}, models)

	_, err = GetSupportedModelsForProvider("never-registered")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestListProvidersContainsRegistered(t *testing.T) {
	Register("fake-listed", func() Provider { return &fakeProvider{} })
	assert.Contains(t, ListProviders(), "fake-listed")
}
