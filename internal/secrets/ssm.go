// Package secrets resolves API keys from AWS SSM Parameter Store at startup.
// Parameters live under a common prefix, e.g. /streaming-agent/OPENAI_API_KEY.
package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const (
	// KeyOpenAI is the parameter name for the OpenAI API key.
	KeyOpenAI = "OPENAI_API_KEY"

	// KeySerpAPI is the parameter name for the SerpAPI key.
	KeySerpAPI = "SERPAPI_API_KEY"
)

// ParameterGetter is the subset of the SSM client used by the resolver.
type ParameterGetter interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// Resolver fetches decrypted parameters from SSM Parameter Store.
type Resolver struct {
	client ParameterGetter
	prefix string
	logger *slog.Logger
}

// NewResolver creates a resolver using the default AWS credential chain.
func NewResolver(ctx context.Context, prefix string, logger *slog.Logger) (*Resolver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewResolverWithClient(ssm.NewFromConfig(awsCfg), prefix, logger), nil
}

// NewResolverWithClient creates a resolver over an existing SSM client.
func NewResolverWithClient(client ParameterGetter, prefix string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger,
	}
}

// Fetch retrieves the named parameters with decryption and returns them
// keyed by their bare name (prefix stripped). Missing parameters are logged
// and omitted rather than failing the whole fetch.
func (r *Resolver) Fetch(ctx context.Context, names ...string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}

	fullNames := make([]string, len(names))
	for i, name := range names {
		fullNames[i] = r.prefix + "/" + name
	}

	withDecryption := true
	out, err := r.client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          fullNames,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return nil, fmt.Errorf("get parameters: %w", err)
	}

	for _, invalid := range out.InvalidParameters {
		r.logger.Warn("ssm parameter not found", "name", invalid)
	}

	values := make(map[string]string, len(out.Parameters))
	for _, param := range out.Parameters {
		if param.Name == nil || param.Value == nil {
			continue
		}
		values[path.Base(*param.Name)] = *param.Value
	}
	return values, nil
}

// FetchAPIKeys retrieves the OpenAI and SerpAPI keys.
func (r *Resolver) FetchAPIKeys(ctx context.Context) (openaiKey, serpapiKey string, err error) {
	values, err := r.Fetch(ctx, KeyOpenAI, KeySerpAPI)
	if err != nil {
		return "", "", err
	}
	return values[KeyOpenAI], values[KeySerpAPI], nil
}
