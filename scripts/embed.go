// Package scripts embeds the Risor codemods of the catalog so the binary
// runs without a scripts directory on disk.
package scripts

import "embed"

// FS holds codemods/*.risor. Script paths inside it match
// runtime.CodemodScriptPath.
//
//go:embed codemods/*.risor
var FS embed.FS
