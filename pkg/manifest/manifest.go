package manifest

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fhirbench/fhirbench/pkg/types"
)

// Manifest is the on-disk shape of a servers file: a flat list of server
// descriptors, keyed by their own ID field.
type Manifest struct {
	Servers []types.ServerDescriptor `yaml:"servers"`
}

// Load reads and parses a servers manifest from path.
func Load(path string) ([]types.ServerDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.IoError{Op: "reading manifest " + path, Cause: err}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &types.SerialisationError{Op: "parsing manifest " + path, Cause: err}
	}

	if err := validate(m.Servers); err != nil {
		return nil, err
	}

	return m.Servers, nil
}

func validate(servers []types.ServerDescriptor) error {
	if len(servers) == 0 {
		return &types.ConfigError{Field: "servers", Cause: errNoServers}
	}

	seen := make(map[string]bool, len(servers))
	for _, s := range servers {
		if s.ID == "" {
			return &types.ConfigError{Field: "servers[].id", Cause: errMissingID}
		}
		if seen[s.ID] {
			return &types.ConfigError{Field: "servers[].id", Cause: duplicateIDError(s.ID)}
		}
		seen[s.ID] = true

		if s.BaseURL == "" {
			return &types.ConfigError{Field: "servers[" + s.ID + "].base_url", Cause: errMissingBaseURL}
		}
		if s.LaunchRecipe == "" {
			return &types.ConfigError{Field: "servers[" + s.ID + "].launch_recipe", Cause: errMissingLaunchRecipe}
		}
		if s.ShutdownRecipe == "" {
			return &types.ConfigError{Field: "servers[" + s.ID + "].shutdown_recipe", Cause: errMissingShutdownRecipe}
		}
	}
	return nil
}

type manifestError string

func (e manifestError) Error() string { return string(e) }

func duplicateIDError(id string) error {
	return manifestError("duplicate server id: " + id)
}

var (
	errNoServers             = manifestError("manifest must declare at least one server")
	errMissingID             = manifestError("server id is required")
	errMissingBaseURL        = manifestError("base_url is required")
	errMissingLaunchRecipe   = manifestError("launch_recipe is required")
	errMissingShutdownRecipe = manifestError("shutdown_recipe is required")
)
