// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	BakefileNotFoundId Id = iota + 1
	BakefileParseErrorId
	ManifestInvalidId
	PayloadMissingId
	ContainerEngineNotFoundId
	BuildFailedId
	PrefetchFailedId
	VerifyFailedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	bakefileNotFoundIssue = &Issue{
		id: BakefileNotFoundId,
		mdMsg: `
# No bakefile found!

We searched for a bakefile but couldn't find one in the expected locations.

## Search locations (in order of precedence):
1. The path given with --file
2. bakefile.cue in the current directory

## Things you can try:
- Create a starter bakefile in your current directory:
~~~
$ bakery init
~~~

- Or point at an existing recipe:
~~~
$ bakery bake --file /path/to/bakefile.cue
~~~`,
	}

	bakefileParseErrorIssue = &Issue{
		id: BakefileParseErrorId,
		mdMsg: `
# Failed to parse bakefile!

Your bakefile contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names
- Invalid values for known fields (uid 0, relative workdir, ...)
- Malformed shell in extra_run steps

## Things you can try:
- Check the error message above for the specific field path
- Validate the recipe without building:
~~~
$ bakery validate
~~~

## Example of a valid recipe:
~~~cue
name: "backtest-runner"
base: "python:3.11-slim"

manifest: "requirements.txt"
runner:   "runner.py"

agent: {source: "agent", provide: "bake"}
data:  {source: "data", provide: "mount"}

user: {name: "runner", uid: 1000}
permissions: "chown"
~~~`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Dependency manifest invalid!

The requirements file could not be used: it is missing, empty, or contains
malformed requirement lines. Nothing was built.

## Things you can try:
- Check the manifest path declared in the bakefile
- Make sure every line is a pip requirement (e.g. ` + "`backtrader==1.9.78.123`" + `)
- Remove stray shell commands or prose from the file`,
	}

	payloadMissingIssue = &Issue{
		id: PayloadMissingId,
		mdMsg: `
# Payload source not found!

A file or directory the recipe wants to bake into the image does not exist
on the host. The build was aborted before the container engine was invoked.

## Things you can try:
- Check the runner, agent, data, symbols and prefetch paths in the bakefile
- Paths are resolved relative to the bakefile's directory
- If the payload is supplied at run time, declare it with ` + "`provide: \"mount\"`" + `
  and the builder will skip it`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

Baking an image requires a container engine, but none is available.

## Supported container engines:
- **Podman** (recommended for rootless setups)
- **Docker**

## Things you can try:
- Install Podman:
  - Linux: ` + "`sudo apt install podman`" + ` or ` + "`sudo dnf install podman`" + `
  - macOS: ` + "`brew install podman`" + `
- Install Docker:
  - https://docs.docker.com/get-docker/

- Configure your preferred engine in ~/.config/bakery/config.cue:
~~~cue
container_engine: "podman"  // or "docker"
~~~`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Image build failed!

The container engine reported a failure while building the image. No image
was produced; failures are never papered over with a partial image.

## Common causes:
- A dependency in the manifest does not exist or has no matching version
- The base image could not be pulled
- An extra_run step exited non-zero

## Things you can try:
- Read the build output above; the first failing step aborts everything after it
- Try installing the manifest locally: ` + "`pip install -r requirements.txt`" + `
- Run with --verbose for the full engine invocation`,
	}

	prefetchFailedIssue = &Issue{
		id: PrefetchFailedId,
		mdMsg: `
# Model prefetch failed!

The prefetch script exited non-zero during the build. The offline-mode flag
was NOT set and no image was produced: a half-populated model cache baked
into an offline image would fail at runtime with no way to recover.

## Things you can try:
- Run the prefetch script locally to reproduce the failure
- Check network access from within builds (proxies, DNS)
- Make sure the prefetch script's own dependencies are in the manifest;
  the manifest installs before the prefetch runs, in that order, for
  exactly this reason`,
	}

	verifyFailedIssue = &Issue{
		id: VerifyFailedId,
		mdMsg: `
# Image verification failed!

The baked image did not pass its post-build checks when started as the
unprivileged runtime user.

## Checks performed:
- The default command path resolves to an existing, readable runner script
- Baked payload paths (agent, data, symbols) are readable by the runtime user
- The offline-mode flag matches the recipe (present after prefetch, absent otherwise)

## Things you can try:
- Rebuild with --no-cache in case a stale cached layer is at fault
- If payloads are mounted, pass the mounts listed in the build receipt
- Check the permission policy in the recipe (widen vs chown)`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The config file exists but could not be parsed against the schema.

## Things you can try:
- Check the error message for the offending field path
- Show the effective configuration:
~~~
$ bakery config show
~~~
- Remove the config file to fall back to defaults`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to perform this operation.

## Common causes:
- Trying to write the build context or receipt to a protected directory
- Container engine requires elevated permissions

## Things you can try:
- Check file/directory permissions
- For Docker, ensure you're in the docker group:
~~~
$ sudo usermod -aG docker $USER
~~~
- Use rootless containers with Podman
- Run bakery from a directory you own`,
	}

	issues = map[Id]*Issue{
		bakefileNotFoundIssue.Id():        bakefileNotFoundIssue,
		bakefileParseErrorIssue.Id():      bakefileParseErrorIssue,
		manifestInvalidIssue.Id():         manifestInvalidIssue,
		payloadMissingIssue.Id():          payloadMissingIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		buildFailedIssue.Id():             buildFailedIssue,
		prefetchFailedIssue.Id():          prefetchFailedIssue,
		verifyFailedIssue.Id():            verifyFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
