// SPDX-License-Identifier: MPL-2.0

package platform

// GOOS values used in comparisons, named to keep the string literals in
// one place.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)
