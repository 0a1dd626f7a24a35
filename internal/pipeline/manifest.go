package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest is a batch of jobs sharing a set of default options.
//
//	defaults:
//	  grid: true
//	jobs:
//	  - name: summer
//	    inputs: [runs/a.gpx, runs/b.gpx]
//	    output: out/summer.png
//	    options:
//	      foreground: "#ff8800"
type Manifest struct {
	Defaults Options
	Jobs     []Job
}

type rawManifest struct {
	Defaults yaml.Node `yaml:"defaults"`
	Jobs     []rawJob  `yaml:"jobs"`
}

type rawJob struct {
	Job     `yaml:",inline"`
	Options yaml.Node `yaml:"options"`
}

// LoadManifest reads a YAML manifest. base supplies the options that neither
// the manifest defaults nor a job override. Relative paths are resolved
// against the manifest's directory.
func LoadManifest(path string, base Options) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data, filepath.Dir(path), base)
}

// ParseManifest decodes a YAML manifest; see LoadManifest.
func ParseManifest(data []byte, dir string, base Options) (Manifest, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m := Manifest{Defaults: base}
	if !raw.Defaults.IsZero() {
		if err := raw.Defaults.Decode(&m.Defaults); err != nil {
			return Manifest{}, fmt.Errorf("failed to parse manifest defaults: %w", err)
		}
	}

	if len(raw.Jobs) == 0 {
		return Manifest{}, fmt.Errorf("manifest contains no jobs")
	}

	seen := make(map[string]bool, len(raw.Jobs))
	for i, rj := range raw.Jobs {
		job := rj.Job
		job.Options = m.Defaults
		if !rj.Options.IsZero() {
			if err := rj.Options.Decode(&job.Options); err != nil {
				return Manifest{}, fmt.Errorf("job %d: failed to parse options: %w", i, err)
			}
		}

		if err := validate.Struct(job); err != nil {
			return Manifest{}, fmt.Errorf("job %d (%s): %w", i, job.Name, err)
		}
		if err := job.Options.Validate(); err != nil {
			return Manifest{}, fmt.Errorf("job %d (%s): %w", i, job.Name, err)
		}
		if seen[job.Name] {
			return Manifest{}, fmt.Errorf("job %d: duplicate name %q", i, job.Name)
		}
		seen[job.Name] = true

		for j, in := range job.Inputs {
			job.Inputs[j] = resolve(dir, in)
		}
		job.Output = resolve(dir, job.Output)
		if job.Pyramid != "" {
			job.Pyramid = resolve(dir, job.Pyramid)
		}

		m.Jobs = append(m.Jobs, job)
	}

	return m, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}
