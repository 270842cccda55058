package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/makeasinger/samples/internal/model"
)

var validate = validator.New()

// Validate checks the loaded configuration. Any problem is reported as a
// config-kind IngestError so callers can refuse to start a batch.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return model.ConfigError("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return model.ConfigError("invalid configuration: %v", err)
	}

	if c.Storage.Backend == "r2" {
		var missing []string
		if c.R2.AccountID == "" && c.R2.Endpoint == "" {
			missing = append(missing, "r2.account_id")
		}
		if c.R2.AccessKeyID == "" {
			missing = append(missing, "r2.access_key_id")
		}
		if c.R2.SecretAccessKey == "" {
			missing = append(missing, "r2.secret_access_key")
		}
		if c.R2.BucketName == "" {
			missing = append(missing, "r2.bucket_name")
		}
		if len(missing) > 0 {
			return model.ConfigError("storage backend r2 requires %s", strings.Join(missing, ", "))
		}
	}

	return nil
}

// YAML renders the effective configuration with secrets masked
func (c *Config) YAML() ([]byte, error) {
	masked := *c
	masked.Redis.Password = mask(masked.Redis.Password)
	masked.R2.AccessKeyID = mask(masked.R2.AccessKeyID)
	masked.R2.SecretAccessKey = mask(masked.R2.SecretAccessKey)
	return yaml.Marshal(&masked)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
