package worker

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BuildSpecFile is the optional per-repository build manifest. Repositories
// that need non-default commands or a different output directory commit one
// at their root.
const BuildSpecFile = "shipstatic.yml"

type BuildSpec struct {
	Install string `yaml:"install"`
	Build   string `yaml:"build"`
	Output  string `yaml:"output"`
}

// LoadBuildSpec reads the manifest from dir if present and fills unset
// fields from defaults. A missing or unparseable manifest falls back to the
// defaults entirely; a broken manifest should fail the build, not the
// worker.
func LoadBuildSpec(dir string, defaults BuildSpec) BuildSpec {
	data, err := os.ReadFile(filepath.Join(dir, BuildSpecFile))
	if err != nil {
		return defaults
	}
	var spec BuildSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return defaults
	}
	if spec.Install == "" {
		spec.Install = defaults.Install
	}
	if spec.Build == "" {
		spec.Build = defaults.Build
	}
	if spec.Output == "" {
		spec.Output = defaults.Output
	}
	return spec
}
