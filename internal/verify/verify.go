// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"bakery-cli/pkg/bakefile"
)

const (
	// OfflineEnv is the environment entry a prefetch-declaring image must
	// carry.
	OfflineEnv = "HF_HUB_OFFLINE=1"

	containerNamePrefix = "bakery-verify-"
	probeTimeout        = 30 * time.Second
)

var (
	// ErrDaemonUnavailable indicates no Docker-compatible API endpoint
	// responded.
	ErrDaemonUnavailable = errors.New("container API not available")
	// ErrChecksFailed indicates the image ran but did not match its
	// recipe.
	ErrChecksFailed = errors.New("image failed verification checks")
)

// Verifier runs image checks against the Docker API.
type Verifier struct {
	client client.APIClient
}

// New connects to the Docker API and confirms the daemon responds.
// Podman's compatibility socket works too.
func New(ctx context.Context) (*Verifier, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	return NewWithClient(cli), nil
}

// NewWithClient wraps an already-connected API client. The caller is
// responsible for the client's liveness; no ping is performed.
func NewWithClient(cli client.APIClient) *Verifier {
	return &Verifier{client: cli}
}

// Close releases the API connection.
func (v *Verifier) Close() error {
	if v.client == nil {
		return nil
	}
	return v.client.Close()
}

// Check is one verification outcome.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Report collects the checks for one image.
type Report struct {
	ImageTag string
	Checks   []Check
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass.
func (r *Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.OK {
			out = append(out, c)
		}
	}
	return out
}

func (r *Report) add(name string, ok bool, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: detail})
}

// Verify checks imageTag against its recipe. Static image-config checks
// run first; then a throwaway container is started as the recipe's user
// and each baked payload is probed for readability from inside it. The
// container is force-removed before return.
func (v *Verifier) Verify(ctx context.Context, bf *bakefile.Bakefile, imageTag string) (*Report, error) {
	report := &Report{ImageTag: imageTag}

	inspect, _, err := v.client.ImageInspectWithRaw(ctx, imageTag)
	if err != nil {
		return nil, fmt.Errorf("inspect image %s: %w", imageTag, err)
	}

	v.checkImageConfig(report, bf, inspect.Config.Env, inspect.Config.Cmd, inspect.Config.User)

	containerID, err := v.startProbeContainer(ctx, bf, imageTag)
	if err != nil {
		return nil, err
	}
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		_ = v.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true})
	}()

	for _, path := range probePaths(bf) {
		ok, detail := v.probeReadable(ctx, containerID, path)
		report.add("readable:"+path, ok, detail)
	}

	return report, nil
}

func (v *Verifier) checkImageConfig(report *Report, bf *bakefile.Bakefile, env, cmd []string, user string) {
	offline := hasEnv(env, OfflineEnv)
	if bf.HasPrefetch() {
		report.add("offline-flag", offline, describeBool(offline,
			OfflineEnv+" present", OfflineEnv+" missing despite declared prefetch"))
	} else {
		report.add("offline-flag", !offline, describeBool(!offline,
			"no offline flag, as expected without prefetch", OfflineEnv+" present without a declared prefetch"))
	}

	for _, k := range sortedKeys(bf.Env) {
		entry := k + "=" + bf.Env[k]
		present := hasEnv(env, entry)
		report.add("env:"+k, present, describeBool(present,
			entry+" present", entry+" missing from image config"))
	}

	wantCmd := bf.DefaultEntrypoint()
	cmdOK := equalSlices(cmd, wantCmd)
	report.add("cmd", cmdOK, fmt.Sprintf("got %v, want %v", cmd, wantCmd))

	userOK := user == bf.User.Name || user == fmt.Sprintf("%d", bf.User.UID)
	report.add("user", userOK, fmt.Sprintf("image runs as %q, recipe declares %s (uid %d)",
		user, bf.User.Name, bf.User.UID))
}

// startProbeContainer starts a long-sleeping container from the image as
// the recipe's unprivileged user, with networking off. The image declares
// no ENTRYPOINT, so overriding Cmd is enough.
func (v *Verifier) startProbeContainer(ctx context.Context, bf *bakefile.Bakefile, imageTag string) (string, error) {
	name := containerNamePrefix + uuid.NewString()[:8]

	cfg := &container.Config{
		Image: imageTag,
		Cmd:   []string{"sleep", "infinity"},
		User:  fmt.Sprintf("%d:%d", bf.User.UID, bf.User.UID),
	}
	hostCfg := &container.HostConfig{
		NetworkMode: "none",
		AutoRemove:  false,
	}

	resp, err := v.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("create probe container: %w", err)
	}
	if err := v.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		removeCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		_ = v.client.ContainerRemove(removeCtx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("start probe container: %w", err)
	}
	return resp.ID, nil
}

// probeReadable execs `test -r path` inside the container as the
// container's user.
func (v *Verifier) probeReadable(ctx context.Context, containerID, path string) (bool, string) {
	execResp, err := v.client.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          []string{"test", "-r", path},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return false, fmt.Sprintf("exec create: %v", err)
	}

	attachResp, err := v.client.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return false, fmt.Sprintf("exec attach: %v", err)
	}
	defer attachResp.Close()

	var stdout, stderr strings.Builder
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader); err != nil {
		return false, fmt.Sprintf("exec read: %v", err)
	}

	inspectResp, err := v.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return false, fmt.Sprintf("exec inspect: %v", err)
	}
	if inspectResp.ExitCode != 0 {
		return false, fmt.Sprintf("not readable (exit %d) %s", inspectResp.ExitCode,
			strings.TrimSpace(stderr.String()))
	}
	return true, "readable"
}

// probePaths lists the in-image paths the recipe bakes. Mounted payloads
// are skipped; they only exist at run time with the mount supplied.
func probePaths(bf *bakefile.Bakefile) []string {
	paths := []string{bf.RunnerDest()}
	if bf.Symbols != "" {
		paths = append(paths, bf.SymbolsDest())
	}
	if bf.Agent.IsBaked() {
		paths = append(paths, bf.AgentDest())
	}
	if bf.Data.IsBaked() {
		paths = append(paths, bf.DataDest())
	}
	return paths
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func hasEnv(env []string, want string) bool {
	for _, e := range env {
		if e == want {
			return true
		}
	}
	return false
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func describeBool(ok bool, okMsg, failMsg string) string {
	if ok {
		return okMsg
	}
	return failMsg
}
