// SPDX-License-Identifier: MPL-2.0

package container

// DockerEngine drives builds and runs through the docker CLI.
type DockerEngine struct {
	*BaseCLIEngine
}

// NewDockerEngine returns a Docker-backed engine.
func NewDockerEngine() *DockerEngine {
	return &DockerEngine{BaseCLIEngine: newBaseCLIEngine(EngineDocker, "docker")}
}
