package compose

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// The generated file pins compose schema 2.4: mem_limit and cpus are
// ignored (moved to swarm) in v3, and the harness relies on both.
const schemaVersion = "2.4"

// descriptorHeader opens the generated file. The schema note travels
// with the file so anyone inspecting a test directory knows why the
// version looks old.
const descriptorHeader = `---
# Compose schema 2.4: a v3 schema would ignore mem_limit and cpus.
`

// descriptor is the generated docker-compose document. Fields marshal
// in declaration order.
type descriptor struct {
	Version  string             `yaml:"version"`
	Services map[string]service `yaml:"services"`
}

type service struct {
	Image         string       `yaml:"image"`
	ContainerName string       `yaml:"container_name"`
	User          quotedString `yaml:"user"`
	Entrypoint    string       `yaml:"entrypoint"`
	Command       []string     `yaml:"command"`
	WorkingDir    string       `yaml:"working_dir"`
	Volumes       []string     `yaml:"volumes"`
	MemLimit      string       `yaml:"mem_limit"`
	CPUs          cpuCount     `yaml:"cpus"`
	Environment   []string     `yaml:"environment"`
}

// quotedString always marshals single-quoted. The user field holds
// "uid:gid", which a YAML 1.1 consumer would otherwise read as a
// sexagesimal integer.
type quotedString string

func (q quotedString) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Style: yaml.SingleQuotedStyle,
		Value: string(q),
	}, nil
}

// cpuCount marshals an integer core count as a float with a trailing
// ".0", matching what docker-compose expects for cpus.
type cpuCount int

func (c cpuCount) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!float",
		Value: strconv.Itoa(int(c)) + ".0",
	}, nil
}

// renderDescriptor produces the docker-compose file content for this
// test. The environment list starts with the fixed instance-directory
// entry, followed by the caller's extra variables in insertion order.
func (c *Compose) renderDescriptor(uid, gid int, projectPath string) ([]byte, error) {
	environment := make([]string, 0, len(c.opts.Environment)+1)
	environment = append(environment, "DM_INSTANCE_DIRECTORY="+InstanceDirectory)
	for _, v := range c.opts.Environment {
		environment = append(environment, v.Name+"="+v.Value)
	}

	doc := descriptor{
		Version: schemaVersion,
		Services: map[string]service{
			serviceName: {
				Image:         c.opts.Image,
				ContainerName: fmt.Sprintf("%s-%s-jote", c.opts.Job, c.opts.Test),
				User:          quotedString(fmt.Sprintf("%d:%d", uid, gid)),
				Entrypoint:    c.opts.Command,
				Command:       []string{},
				WorkingDir:    c.opts.WorkingDirectory,
				Volumes: []string{
					"/var/run/docker.sock:/var/run/docker.sock",
					projectPath + ":" + c.opts.ProjectDirectory,
				},
				MemLimit:    c.memLimit,
				CPUs:        cpuCount(c.opts.Cores),
				Environment: environment,
			},
		},
	}

	body, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compose descriptor: %w", err)
	}

	return append([]byte(descriptorHeader), body...), nil
}
