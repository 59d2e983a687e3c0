// Package credentials loads provider secrets from the files the pipeline has
// always used: an AWS access-key CSV export, an OpenAI key JSON document and
// an ElevenLabs dotenv file. Nothing is read at import time; callers load what
// they need when they build a client.
package credentials

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Environment variables consulted when no file path is configured.
const (
	EnvAWSCredentialsFile = "AWS_APPLICATION_CREDENTIALS"
	EnvOpenAIKeyFile      = "OPENAI_API_KEY_FILE"
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvElevenLabsKey      = "XI_API_KEY"
)

// Column headers of the AWS console access-key CSV export.
const (
	csvAccessKeyColumn = "Access key ID"
	csvSecretKeyColumn = "Secret access key"
)

const openAIKeyField = "OPENAI_API_TOKEN"

const openAIKeySchema = `{
  "type": "object",
  "required": ["OPENAI_API_TOKEN"],
  "properties": {
    "OPENAI_API_TOKEN": {"type": "string", "minLength": 1}
  }
}`

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Static errors.
var (
	ErrMissingColumn = errors.New("credentials CSV is missing a required column")
	ErrNoRows        = errors.New("credentials CSV has no data rows")
	ErrKeyNotFound   = errors.New("api key not found")
)

// AWSKeys is a static AWS access key pair.
type AWSKeys struct {
	AccessKeyID     string
	SecretAccessKey string
}

// LoadAWSKeysCSV reads the first data row of an AWS access-key CSV export.
// A leading UTF-8 byte order mark is tolerated.
func LoadAWSKeysCSV(path string) (AWSKeys, error) {
	var empty AWSKeys

	raw, err := os.ReadFile(path)
	if err != nil {
		return empty, fmt.Errorf("failed to read AWS credentials '%s': %w", path, err)
	}

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM)))

	records, err := reader.ReadAll()
	if err != nil {
		return empty, fmt.Errorf("failed to parse AWS credentials '%s': %w", path, err)
	}

	if len(records) < 2 {
		return empty, fmt.Errorf("%w: %s", ErrNoRows, path)
	}

	header := records[0]
	accessIndex := columnIndex(header, csvAccessKeyColumn)
	secretIndex := columnIndex(header, csvSecretKeyColumn)

	if accessIndex < 0 || secretIndex < 0 {
		return empty, fmt.Errorf("%w: want %q and %q in %s",
			ErrMissingColumn, csvAccessKeyColumn, csvSecretKeyColumn, path)
	}

	row := records[1]
	if accessIndex >= len(row) || secretIndex >= len(row) {
		return empty, fmt.Errorf("%w: short row in %s", ErrNoRows, path)
	}

	return AWSKeys{
		AccessKeyID:     strings.TrimSpace(row[accessIndex]),
		SecretAccessKey: strings.TrimSpace(row[secretIndex]),
	}, nil
}

// AWSConfig builds an AWS SDK config for region. When csvPath is empty the
// SDK's default credential chain is used.
func AWSConfig(ctx context.Context, region, csvPath string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	if csvPath != "" {
		keys, err := LoadAWSKeysCSV(csvPath)
		if err != nil {
			return aws.Config{}, err
		}

		opts = append(opts, awsconfig.WithCredentialsProvider(
			awscredentials.NewStaticCredentialsProvider(keys.AccessKeyID, keys.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cfg, nil
}

// LoadOpenAIKey returns the OpenAI API key from a JSON file of the form
// {"OPENAI_API_TOKEN": "..."}. With an empty path it falls back to the
// OPENAI_API_KEY environment variable.
func LoadOpenAIKey(path string) (string, error) {
	if path == "" {
		key := strings.TrimSpace(os.Getenv(EnvOpenAIKey))
		if key == "" {
			return "", fmt.Errorf("%w: set %s or %s", ErrKeyNotFound, EnvOpenAIKeyFile, EnvOpenAIKey)
		}

		return key, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read OpenAI key file '%s': %w", path, err)
	}

	var document map[string]any

	err = json.Unmarshal(raw, &document)
	if err != nil {
		return "", fmt.Errorf("failed to parse OpenAI key file '%s': %w", path, err)
	}

	err = validateOpenAIKeyDocument(document)
	if err != nil {
		return "", fmt.Errorf("invalid OpenAI key file '%s': %w", path, err)
	}

	key, _ := document[openAIKeyField].(string)

	return strings.TrimSpace(key), nil
}

func validateOpenAIKeyDocument(document map[string]any) error {
	compiler := jsonschema.NewCompiler()

	err := compiler.AddResource("openai-key.json", strings.NewReader(openAIKeySchema))
	if err != nil {
		return fmt.Errorf("schema resource: %w", err)
	}

	schema, err := compiler.Compile("openai-key.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	return schema.Validate(document)
}

// LoadElevenLabsKey returns XI_API_KEY from a dotenv-style file. With an empty
// path it falls back to the XI_API_KEY environment variable.
func LoadElevenLabsKey(path string) (string, error) {
	if path == "" {
		key := strings.TrimSpace(os.Getenv(EnvElevenLabsKey))
		if key == "" {
			return "", fmt.Errorf("%w: set %s", ErrKeyNotFound, EnvElevenLabsKey)
		}

		return key, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read ElevenLabs key file '%s': %w", path, err)
	}

	key := strings.TrimSpace(values[EnvElevenLabsKey])
	if key == "" {
		return "", fmt.Errorf("%w: %s not set in %s", ErrKeyNotFound, EnvElevenLabsKey, path)
	}

	return key, nil
}

func columnIndex(header []string, name string) int {
	for index, column := range header {
		if strings.TrimSpace(column) == name {
			return index
		}
	}

	return -1
}
