package machine

import "embed"

//go:embed machines/*.yml
var builtinFS embed.FS
