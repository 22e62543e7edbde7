package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSM struct {
	params map[string]string
	err    error

	lastInput *ssm.GetParametersInput
}

func (f *fakeSSM) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	out := &ssm.GetParametersOutput{}
	for _, name := range in.Names {
		if value, ok := f.params[name]; ok {
			out.Parameters = append(out.Parameters, types.Parameter{
				Name:  aws.String(name),
				Value: aws.String(value),
			})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, name)
		}
	}
	return out, nil
}

func TestFetch(t *testing.T) {
	client := &fakeSSM{params: map[string]string{
		"/streaming-agent/OPENAI_API_KEY":  "sk-test",
		"/streaming-agent/SERPAPI_API_KEY": "serp-test",
	}}
	resolver := NewResolverWithClient(client, "/streaming-agent", nil)

	values, err := resolver.Fetch(context.Background(), KeyOpenAI, KeySerpAPI)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if values[KeyOpenAI] != "sk-test" {
		t.Errorf("openai key = %q", values[KeyOpenAI])
	}
	if values[KeySerpAPI] != "serp-test" {
		t.Errorf("serpapi key = %q", values[KeySerpAPI])
	}

	if client.lastInput.WithDecryption == nil || !*client.lastInput.WithDecryption {
		t.Error("WithDecryption not requested")
	}
}

func TestFetchPrefixJoining(t *testing.T) {
	client := &fakeSSM{params: map[string]string{
		"/streaming-agent/OPENAI_API_KEY": "sk-test",
	}}

	// A trailing slash on the prefix must not double up.
	resolver := NewResolverWithClient(client, "/streaming-agent/", nil)
	values, err := resolver.Fetch(context.Background(), KeyOpenAI)
	if err != nil {
		t.Fatal(err)
	}
	if values[KeyOpenAI] != "sk-test" {
		t.Errorf("openai key = %q (requested %v)", values[KeyOpenAI], client.lastInput.Names)
	}
}

func TestFetchOmitsMissingParameters(t *testing.T) {
	client := &fakeSSM{params: map[string]string{
		"/streaming-agent/OPENAI_API_KEY": "sk-test",
	}}
	resolver := NewResolverWithClient(client, "/streaming-agent", nil)

	values, err := resolver.Fetch(context.Background(), KeyOpenAI, KeySerpAPI)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, ok := values[KeySerpAPI]; ok {
		t.Error("missing parameter should be omitted")
	}
	if values[KeyOpenAI] != "sk-test" {
		t.Errorf("openai key = %q", values[KeyOpenAI])
	}
}

func TestFetchClientError(t *testing.T) {
	resolver := NewResolverWithClient(&fakeSSM{err: errors.New("access denied")}, "/streaming-agent", nil)
	if _, err := resolver.Fetch(context.Background(), KeyOpenAI); err == nil {
		t.Error("expected error")
	}
}

func TestFetchAPIKeys(t *testing.T) {
	client := &fakeSSM{params: map[string]string{
		"/streaming-agent/OPENAI_API_KEY":  "sk-test",
		"/streaming-agent/SERPAPI_API_KEY": "serp-test",
	}}
	resolver := NewResolverWithClient(client, "/streaming-agent", nil)

	openaiKey, serpapiKey, err := resolver.FetchAPIKeys(context.Background())
	if err != nil {
		t.Fatalf("FetchAPIKeys: %v", err)
	}
	if openaiKey != "sk-test" || serpapiKey != "serp-test" {
		t.Errorf("keys = %q, %q", openaiKey, serpapiKey)
	}
}

func TestFetchNoNames(t *testing.T) {
	client := &fakeSSM{}
	resolver := NewResolverWithClient(client, "/streaming-agent", nil)

	values, err := resolver.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 0 {
		t.Errorf("values = %v", values)
	}
	if client.lastInput != nil {
		t.Error("no request expected for empty name list")
	}
}
