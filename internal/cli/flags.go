package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/mmr-tortoise/banyan/internal/checkout"
)

// outputFormat is the value of the --output flag.
type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

var _ pflag.Value = (*outputFormat)(nil)

func (f *outputFormat) String() string { return string(*f) }

func (f *outputFormat) Set(s string) error {
	switch v := outputFormat(strings.ToLower(s)); v {
	case formatText, formatJSON, formatYAML:
		*f = v
		return nil
	default:
		return fmt.Errorf("must be one of text, json, yaml")
	}
}

func (f *outputFormat) Type() string { return "format" }

// policyFlag is the value of the --on-error flag.
type policyFlag struct {
	policy checkout.Policy
}

var _ pflag.Value = (*policyFlag)(nil)

func (p *policyFlag) String() string { return p.policy.String() }

func (p *policyFlag) Set(s string) error {
	policy, err := checkout.ParsePolicy(s)
	if err != nil {
		return err
	}
	p.policy = policy
	return nil
}

func (p *policyFlag) Type() string { return "policy" }
