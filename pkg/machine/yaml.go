package machine

// yamlTransition is one edge in the transitions shorthand: every byte in
// Symbols moves From to To.
type yamlTransition struct {
	From    uint32 `yaml:"from"`
	To      uint32 `yaml:"to"`
	Symbols string `yaml:"symbols"`
}

// yamlMachine is the intermediate struct for one machine descriptor.
//
// Tags is keyed by state id written as a string so that JSON documents,
// which only allow string keys, decode the same way as YAML ones.
type yamlMachine struct {
	ID               string              `yaml:"id"`
	Name             string              `yaml:"name"`
	Description      string              `yaml:"description,omitempty"`
	Pattern          string              `yaml:"pattern,omitempty"`
	Keywords         []string            `yaml:"keywords,omitempty"`
	Categories       []string            `yaml:"categories,omitempty"`
	Examples         []string            `yaml:"examples,omitempty"`
	NegativeExamples []string            `yaml:"negative_examples,omitempty"`
	References       []string            `yaml:"references,omitempty"`
	Accepting        []uint32            `yaml:"accepting"`
	Tags             map[string][]string `yaml:"tags,omitempty"`
	Transitions      []yamlTransition    `yaml:"transitions,omitempty"`
	StateTable       [][]uint32          `yaml:"state_table,omitempty"`
}

// yamlMachinesFile is the top-level structure of a descriptor file.
type yamlMachinesFile struct {
	Machines []yamlMachine `yaml:"machines"`
}
