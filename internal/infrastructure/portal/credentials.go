package portal

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/recibos/taxbot/internal/domain/shared"
)

// Environment variables holding the portal login
const (
	EnvNIF      = "NIF"
	EnvPassword = "TAX_PORTAL_PASSWORD"
)

// Credentials are the taxpayer number and portal password
type Credentials struct {
	NIF      string
	Password string
}

// CredentialsSource returns the login to use
type CredentialsSource func() (Credentials, error)

// StaticCredentials always returns c
func StaticCredentials(c Credentials) CredentialsSource {
	return func() (Credentials, error) {
		return c, nil
	}
}

// EnvCredentials reads NIF and TAX_PORTAL_PASSWORD from the process
// environment, falling back to envFile (dotenv format). A missing envFile is
// not an error; missing values are.
func EnvCredentials(envFile string) CredentialsSource {
	return func() (Credentials, error) {
		fileEnv := map[string]string{}
		if envFile != "" {
			values, err := godotenv.Read(envFile)
			switch {
			case err == nil:
				fileEnv = values
			case errors.Is(err, fs.ErrNotExist):
			default:
				return Credentials{}, shared.NewAutomationError("failed to read "+envFile, err)
			}
		}

		lookup := func(key string) string {
			if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
				return v
			}
			return fileEnv[key]
		}

		creds := Credentials{
			NIF:      lookup(EnvNIF),
			Password: lookup(EnvPassword),
		}

		var missing []string
		if strings.TrimSpace(creds.NIF) == "" {
			missing = append(missing, EnvNIF)
		}
		if creds.Password == "" {
			missing = append(missing, EnvPassword)
		}
		if len(missing) > 0 {
			return Credentials{}, shared.NewAutomationError("missing portal credentials: "+strings.Join(missing, ", "), nil)
		}
		return creds, nil
	}
}
