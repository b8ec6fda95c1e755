// Package identity resolves the elevated principal and the original
// invoking user for per-step identity switching. A run executes as root,
// but user-scoped configuration must end up owned by the user who ran
// sudo, not by root.
package identity

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strconv"

	"github.com/Sothcheat/provision/internal/ports"
)

// User is a resolved OS user.
type User struct {
	Name string
	UID  int
	GID  int
	Home string
}

// Credential converts the user into the ports-level form handed to the
// command runner.
func (u User) Credential() *ports.Credential {
	return &ports.Credential{UID: uint32(u.UID), GID: uint32(u.GID)}
}

// IsRoot reports whether the user is the superuser.
func (u User) IsRoot() bool {
	return u.UID == 0
}

// ErrNoInvokingUser is returned when the original user cannot be
// determined, e.g. a run started directly from a root shell with no
// SUDO_* environment.
var ErrNoInvokingUser = errors.New("cannot resolve invoking user")

// CurrentIsRoot reports whether the process runs with elevated privilege.
func CurrentIsRoot() bool {
	return os.Geteuid() == 0
}

// Current resolves the user the process runs as.
func Current() (User, error) {
	u, err := user.Current()
	if err != nil {
		return User{}, err
	}
	return fromOSUser(u)
}

// ResolveInvoking resolves the non-privileged user that invoked the run.
// Under sudo the SUDO_UID/SUDO_USER environment names the original user;
// without it the current user is returned if not root.
func ResolveInvoking() (User, error) {
	return resolveInvoking(os.Getenv)
}

// resolveInvoking is the testable core of ResolveInvoking.
func resolveInvoking(getenv func(string) string) (User, error) {
	if uid := getenv("SUDO_UID"); uid != "" {
		u, err := user.LookupId(uid)
		if err != nil {
			return User{}, fmt.Errorf("SUDO_UID=%s: %w", uid, err)
		}
		return fromOSUser(u)
	}

	if name := getenv("SUDO_USER"); name != "" {
		u, err := user.Lookup(name)
		if err != nil {
			return User{}, fmt.Errorf("SUDO_USER=%s: %w", name, err)
		}
		return fromOSUser(u)
	}

	current, err := Current()
	if err != nil {
		return User{}, err
	}
	if current.IsRoot() {
		return User{}, ErrNoInvokingUser
	}
	return current, nil
}

func fromOSUser(u *user.User) (User, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return User{}, fmt.Errorf("uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return User{}, fmt.Errorf("gid %q: %w", u.Gid, err)
	}

	return User{
		Name: u.Username,
		UID:  uid,
		GID:  gid,
		Home: u.HomeDir,
	}, nil
}
