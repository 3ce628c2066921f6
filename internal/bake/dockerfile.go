// SPDX-License-Identifier: MPL-2.0

package bake

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"bakery-cli/pkg/bakefile"
)

// RenderDockerfile emits the plan as a Dockerfile. Output is
// deterministic for a given plan, which keeps the cache key stable.
func RenderDockerfile(bf *bakefile.Bakefile, plan *Plan) (string, error) {
	var b strings.Builder
	b.WriteString("# Generated by bakery for recipe ")
	b.WriteString(bf.Name)
	b.WriteString(". Do not edit.\n")

	for _, step := range plan.Steps {
		lines, err := renderStep(bf, step)
		if err != nil {
			return "", err
		}
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func renderStep(bf *bakefile.Bakefile, step Step) ([]string, error) {
	switch step.Kind {
	case StepBaseImage:
		if len(step.Args) != 2 {
			return nil, stepArgErr(step, 2)
		}
		return []string{
			"FROM " + step.Args[0],
			"WORKDIR " + step.Args[1],
		}, nil

	case StepInstallDeps:
		if len(step.Args) != 1 {
			return nil, stepArgErr(step, 1)
		}
		manifest := contextPath(step.Args[0])
		return []string{
			fmt.Sprintf("COPY %s ./", manifest),
			fmt.Sprintf("RUN pip install --no-cache-dir -r %s", manifest),
		}, nil

	case StepPrefetch:
		if len(step.Args) != 2 {
			return nil, stepArgErr(step, 2)
		}
		script := contextPath(step.Args[0])
		return []string{
			fmt.Sprintf("COPY %s ./", script),
			fmt.Sprintf("RUN python %s", script),
		}, nil

	case StepOfflineFlag:
		return []string{"ENV HF_HUB_OFFLINE=1"}, nil

	case StepCopyPayload:
		if len(step.Args) != 2 {
			return nil, stepArgErr(step, 2)
		}
		return []string{fmt.Sprintf("COPY %s %s", step.Args[0], step.Args[1])}, nil

	case StepExtraRun:
		if len(step.Args) != 1 {
			return nil, stepArgErr(step, 1)
		}
		return []string{"RUN " + step.Args[0]}, nil

	case StepEnv:
		if len(step.Args) != 1 {
			return nil, stepArgErr(step, 1)
		}
		return []string{"ENV " + step.Args[0]}, nil

	case StepPermissions:
		return renderPermissions(bf, step)

	case StepCreateUser:
		if len(step.Args) != 2 {
			return nil, stepArgErr(step, 2)
		}
		return []string{fmt.Sprintf("RUN useradd --create-home --uid %s %s",
			step.Args[1], step.Args[0])}, nil

	case StepSwitchUser:
		if len(step.Args) != 1 {
			return nil, stepArgErr(step, 1)
		}
		return []string{"USER " + step.Args[0]}, nil

	case StepEntrypoint:
		encoded, err := json.Marshal(step.Args)
		if err != nil {
			return nil, fmt.Errorf("encode entrypoint: %w", err)
		}
		return []string{"CMD " + string(encoded)}, nil

	default:
		return nil, fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func renderPermissions(bf *bakefile.Bakefile, step Step) ([]string, error) {
	if len(step.Args) < 2 {
		return nil, stepArgErr(step, 2)
	}
	switch bakefile.PermissionPolicy(step.Args[0]) {
	case bakefile.PermissionsWiden:
		return []string{fmt.Sprintf("RUN chmod -R a+rwX %s", step.Args[1])}, nil
	case bakefile.PermissionsChown:
		if len(step.Args) != 3 {
			return nil, stepArgErr(step, 3)
		}
		user := step.Args[2]
		return []string{fmt.Sprintf("RUN chown -R %s:%s %s", user, user, step.Args[1])}, nil
	default:
		return nil, fmt.Errorf("unknown permission policy %q", step.Args[0])
	}
}

func stepArgErr(step Step, want int) error {
	return fmt.Errorf("step %s: got %d args, want %d", step.Kind, len(step.Args), want)
}

// DockerfileName is the file name used inside the staged build context.
const DockerfileName = "Dockerfile"

// resultsHint names the conventional in-image results directory. It is
// informational only; the runner creates it on demand.
func resultsHint(workdir string) string {
	return path.Join(workdir, bakefile.ResultsDir)
}
