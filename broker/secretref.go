package broker

import (
	"fmt"
	"os"
	"strings"
)

// resolveDSN expands a dial URL that references an environment variable
// instead of embedding credentials directly. A value of the form
// "env:NAME" is replaced with the contents of environment variable NAME;
// anything else — the common case of a literal amqp(s):// URL — is
// returned unchanged.
//
// Broker URLs don't warrant a pluggable multi-provider secret registry:
// there is exactly one place a reference can appear (DialConfig.URLs) and
// exactly one realistic source for it in a containerized deployment, the
// process environment.
func resolveDSN(value string) (string, error) {
	const prefix = "env:"
	if !strings.HasPrefix(value, prefix) {
		return value, nil
	}
	name := strings.TrimPrefix(value, prefix)
	if name == "" {
		return "", fmt.Errorf("broker: empty environment variable name in dial URL %q", value)
	}
	resolved, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("broker: environment variable %q referenced by dial URL is not set", name)
	}
	return resolved, nil
}
