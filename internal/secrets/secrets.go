package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

var ErrMissing = errors.New("secret not set")

// ssmAPI is the part of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParamStore reads decrypted SecureString parameters.
type ParamStore struct {
	api ssmAPI
}

func NewParamStore(api ssmAPI) (*ParamStore, error) {
	if api == nil {
		return nil, errors.New("secrets: api must not be nil")
	}
	return &ParamStore{api: api}, nil
}

func (p *ParamStore) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("secrets: name is required")
	}

	withDecryption := true
	out, err := p.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("secrets: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("secrets: parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// Source looks a secret up in the environment first and then, when a
// parameter prefix is configured, in the parameter store under
// <prefix>/<name>.
type Source struct {
	Getenv func(string) string
	Params Getter
	Prefix string
}

func (s Source) Get(ctx context.Context, envKey, name string) (string, error) {
	if s.Getenv != nil {
		if v := strings.TrimSpace(s.Getenv(envKey)); v != "" {
			return v, nil
		}
	}
	if s.Params == nil || s.Prefix == "" {
		return "", fmt.Errorf("%s: %w", envKey, ErrMissing)
	}

	v, err := s.Params.GetParameter(ctx, strings.TrimRight(s.Prefix, "/")+"/"+name)
	if err != nil {
		return "", err
	}
	if v = strings.TrimSpace(v); v == "" {
		return "", fmt.Errorf("%s: %w", name, ErrMissing)
	}
	return v, nil
}
