package store

import (
	"crypto/subtle"
	"fmt"
)

// ProjectKey is one credential pair accepted for a project.
type ProjectKey struct {
	ProjectID int64  `json:"project_id"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// KeyRing indexes project keys by public key.
type KeyRing struct {
	byPublic map[string]ProjectKey
	projects map[int64]struct{}
}

// NewKeyRing builds a KeyRing. Duplicate public keys are rejected.
func NewKeyRing(keys ...ProjectKey) (*KeyRing, error) {
	kr := &KeyRing{byPublic: make(map[string]ProjectKey), projects: make(map[int64]struct{})}
	for _, k := range keys {
		if k.PublicKey == "" {
			return nil, fmt.Errorf("project %d: empty public key", k.ProjectID)
		}
		if k.ProjectID <= 0 {
			return nil, fmt.Errorf("key %s: invalid project id %d", k.PublicKey, k.ProjectID)
		}
		if _, dup := kr.byPublic[k.PublicKey]; dup {
			return nil, fmt.Errorf("duplicate public key %s", k.PublicKey)
		}
		kr.byPublic[k.PublicKey] = k
		kr.projects[k.ProjectID] = struct{}{}
	}
	return kr, nil
}

// HasProject reports whether at least one key belongs to id.
func (kr *KeyRing) HasProject(id int64) bool {
	_, ok := kr.projects[id]
	return ok
}

// Lookup returns the key registered under publicKey.
func (kr *KeyRing) Lookup(publicKey string) (ProjectKey, bool) {
	k, ok := kr.byPublic[publicKey]
	return k, ok
}

func secretMatches(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
