package notify

import (
	"os"

	"github.com/jmehdipour/order-alert/internal/model"
)

// Env var names the hosting platform provides the Twilio secrets under.
const (
	EnvAccountSID = "TWILIO_ACCOUNT_SID"
	EnvAuthToken  = "TWILIO_AUTH_TOKEN"
	EnvFromNumber = "TWILIO_FROM_NUMBER"
)

// EnvCredentials reads the Twilio secrets from the process environment on every
// call, so rotated values are picked up by the next invocation.
type EnvCredentials struct{}

func (EnvCredentials) Credentials() model.Credentials {
	return model.Credentials{
		AccountSID: os.Getenv(EnvAccountSID),
		AuthToken:  os.Getenv(EnvAuthToken),
		FromNumber: os.Getenv(EnvFromNumber),
	}
}

// StaticCredentials always returns the wrapped value.
type StaticCredentials model.Credentials

func (s StaticCredentials) Credentials() model.Credentials { return model.Credentials(s) }
