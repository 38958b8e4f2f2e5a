package opensearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/ayr-records/recordsearch/internal/types"
)

// Credentials are the basic-auth user for the cluster, stored as a JSON
// secret: {"username": "...", "password": "..."}.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type secretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// LoadCredentials reads the basic-auth credentials from AWS Secrets Manager.
func LoadCredentials(ctx context.Context, region, secretID string) (*Credentials, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return fetchCredentials(ctx, secretsmanager.NewFromConfig(awsCfg), secretID)
}

func fetchCredentials(ctx context.Context, sm secretGetter, secretID string) (*Credentials, error) {
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, classifySecretError(err, secretID)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return nil, fmt.Errorf("secret %s has no string value", secretID)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("secret %s is not valid JSON: %w", secretID, err)
	}
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("secret %s must contain username and password", secretID)
	}
	return &creds, nil
}

// classifySecretError maps Secrets Manager API errors onto SearchError so
// callers see authentication and configuration problems as such.
func classifySecretError(err error, secretID string) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("failed to read secret %s: %w", secretID, err)
	}

	var se *SearchError
	switch apiErr.ErrorCode() {
	case "ResourceNotFoundException":
		se = NewSearchError(types.ErrorTypeConfiguration, fmt.Sprintf("secret %s not found", secretID))
		se.Suggestion = "Check OPENSEARCH_CREDENTIALS_SECRET and OPENSEARCH_REGION"
	case "AccessDeniedException", "UnrecognizedClientException":
		se = NewSearchError(types.ErrorTypeAuthentication, fmt.Sprintf("not allowed to read secret %s", secretID))
		se.Suggestion = "Grant secretsmanager:GetSecretValue on the secret"
	case "ThrottlingException":
		se = NewRetryableSearchError(types.ErrorTypeRateLimit, fmt.Sprintf("throttled reading secret %s", secretID), 0)
	default:
		se = NewSearchError(types.ErrorTypeUnknown, fmt.Sprintf("failed to read secret %s: %s", secretID, apiErr.ErrorMessage()))
	}
	se.Operation = "load_credentials"
	se.Cause = err
	return se
}
