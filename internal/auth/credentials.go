package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

type Role string

const (
	RoleAgent   Role = "agent"
	RoleManager Role = "manager"
)

type credential struct {
	secret string
	role   Role
}

// Store is the flat shared-secret table clients authenticate against.
// Entries never change after startup.
type Store struct {
	byUsername map[string]credential
}

// ParseStore parses a comma-separated list of "username:secret:role" entries.
func ParseStore(raw string) (*Store, error) {
	s := &Store{byUsername: make(map[string]credential)}
	if strings.TrimSpace(raw) == "" {
		return s, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed credential entry %q, want username:secret:role", entry)
		}
		role := Role(parts[2])
		if role != RoleAgent && role != RoleManager {
			return nil, fmt.Errorf("unknown role %q for user %q", parts[2], parts[0])
		}
		if _, exists := s.byUsername[parts[0]]; exists {
			return nil, fmt.Errorf("duplicate credential entry for user %q", parts[0])
		}
		s.byUsername[parts[0]] = credential{secret: parts[1], role: role}
	}
	return s, nil
}

// Lookup checks a username/secret pair and returns the user's role on match.
func (s *Store) Lookup(username, secret string) (Role, bool) {
	cred, ok := s.byUsername[username]
	if !ok {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(cred.secret), []byte(secret)) != 1 {
		return "", false
	}
	return cred.role, true
}

// Len reports how many credentials are loaded.
func (s *Store) Len() int {
	return len(s.byUsername)
}
