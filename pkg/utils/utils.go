package utils

import (
	"os/user"
	"runtime"
	"strconv"
	"strings"
)

// IsRoot reports whether the process runs with administrative privileges
func IsRoot() bool {
	u, err := user.Current()
	if err != nil {
		return false
	}

	if runtime.GOOS == "windows" {
		// well-known SID of the local Administrators group
		gids, err := u.GroupIds()
		if err != nil {
			return false
		}
		return OneOf("S-1-5-32-544", gids)
	}

	return u.Uid == "0"
}

// LookupUser resolves a uid to a user name, "Unknown" when it cannot be resolved
func LookupUser(uid int32) string {
	u, err := user.LookupId(strconv.Itoa(int(uid)))
	if err != nil {
		return "Unknown"
	}

	return u.Username
}

// BaseName returns the last element of a path using either separator
func BaseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}

	return path
}
