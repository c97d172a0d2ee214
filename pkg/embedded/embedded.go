package embedded

import (
	_ "embed"
)

// DemoArrangementYAML is a four bar C major groove used by the CLI demo
// command and as a fixture in tests.
//
//go:embed data/demo_arrangement.yaml
var DemoArrangementYAML []byte
