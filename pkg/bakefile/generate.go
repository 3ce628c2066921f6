// SPDX-License-Identifier: MPL-2.0

package bakefile

import "fmt"

// GenerateSample returns a commented starter bakefile for `bakery init`.
// The sample parses cleanly against the embedded schema.
func GenerateSample(name string) string {
	return fmt.Sprintf(`// Recipe for the %[1]s runner image.
// Run 'bakery bake' in this directory to build it.

name: %[1]q
base: "python:3.11-slim"

// All payloads land beneath this path inside the image.
workdir: "/workspace"

manifest: "requirements.txt"
runner:   "runner.py"

// Payloads are baked into the image by default. Switch provide to
// "mount" to supply one at container start instead; the build receipt
// then records the expected mount target.
agent: {source: "agent", provide: "bake"}
data: {source: "data", provide: "bake"}

// Uncomment to pre-download model artifacts at build time. A successful
// prefetch bakes the cache into the image and sets HF_HUB_OFFLINE=1,
// permanently disabling network fetches of those artifacts.
//prefetch: {script: "prefetch.py", cache_dir: "models"}

// The runtime identity. All privileged setup happens before the build
// switches to this user; nothing after the switch can escalate.
user: {name: "runner", uid: 1000}

// "chown" hands the workdir to the runtime user; "widen" chmods it
// world-usable instead (a deliberate simplification, not a boundary).
permissions: "chown"
`, name)
}
