package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// RolesFile is the YAML document naming actor roles and per-state
// capability overrides:
//
//	actors:
//	  alice: interviewer_a
//	  bob: supervisor_b
//	capabilities:
//	  pending_c: supervisor_b
//	admins:
//	  - ops
type RolesFile struct {
	Actors       map[string]string `yaml:"actors"`
	Capabilities map[string]string `yaml:"capabilities"`
	Admins       []string          `yaml:"admins"`
}

// Identity is the parsed, validated result of the roles sources.
type Identity struct {
	Actors    map[string]types.Role
	Overrides map[types.Status]types.Role
	Admins    []string
}

// LoadRolesFile reads path; a missing file yields an empty RolesFile.
func LoadRolesFile(path string) (RolesFile, error) {
	var rf RolesFile
	if strings.TrimSpace(path) == "" {
		return rf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rf, nil
		}
		return rf, fmt.Errorf("read roles file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rf, fmt.Errorf("parse roles file %s: %w", path, err)
	}
	return rf, nil
}

// ResolveIdentity merges the YAML file with inline "actor:role" pairs.
// Inline pairs win over the file.
func (c Config) ResolveIdentity() (Identity, error) {
	rf, err := LoadRolesFile(c.RolesFile)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{
		Actors:    make(map[string]types.Role),
		Overrides: make(map[types.Status]types.Role),
	}

	for actor, name := range rf.Actors {
		if err := id.addActor(actor, name); err != nil {
			return Identity{}, err
		}
	}
	for _, pair := range c.Roles {
		actor, name, ok := strings.Cut(pair, ":")
		if !ok {
			return Identity{}, fmt.Errorf("bad role pair %q (want actor:role)", pair)
		}
		if err := id.addActor(actor, name); err != nil {
			return Identity{}, err
		}
	}

	for st, name := range rf.Capabilities {
		status, err := types.ParseStatus(strings.TrimSpace(st))
		if err != nil {
			return Identity{}, fmt.Errorf("capabilities: %w", err)
		}
		role, err := types.ParseRole(strings.TrimSpace(name))
		if err != nil || role == types.RoleNone {
			return Identity{}, fmt.Errorf("capabilities: bad role %q for %s", name, st)
		}
		id.Overrides[status] = role
	}

	seen := make(map[string]bool)
	for _, a := range append(append([]string(nil), rf.Admins...), c.Admins...) {
		a = strings.TrimSpace(a)
		if a == "" {
			return Identity{}, fmt.Errorf("admins: empty actor id")
		}
		if !seen[a] {
			seen[a] = true
			id.Admins = append(id.Admins, a)
		}
	}

	return id, nil
}

func (id *Identity) addActor(actor, name string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return fmt.Errorf("empty actor id")
	}
	role, err := types.ParseRole(strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("actor %s: %w", actor, err)
	}
	id.Actors[actor] = role
	return nil
}
