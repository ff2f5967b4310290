package system

import (
	"fmt"
	"os"

	"github.com/moby/sys/user"
)

// invokingUser resolves who really started nymctl. Under sudo that is SUDO_USER,
// the node must never end up running as root because the installer was elevated
func invokingUser(getenv func(string) string, lookup func(string) (user.User, error), current func() (user.User, error)) (string, string, error) {
	if name := getenv("SUDO_USER"); name != "" && name != "root" {
		u, err := lookup(name)
		if err != nil {
			return "", "", fmt.Errorf("unable to look up invoking user %s: %w", name, err)
		}
		return u.Name, u.Home, nil
	}
	u, err := current()
	if err != nil {
		return "", "", fmt.Errorf("unable to look up current user: %w", err)
	}
	return u.Name, u.Home, nil
}

func lookupInvokingUser() (string, string, error) {
	return invokingUser(os.Getenv, user.LookupUser, user.CurrentUser)
}
