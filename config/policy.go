package config

import (
	"fmt"
	"net/http"

	"github.com/BurntSushi/toml"
	"github.com/soffa-projects/jobrpc/rpc"
)

// policyFile is the TOML layout of a classifier policy:
//
//	[busy]
//	statuses = [409, 423]
//	codes    = ["E_BUSY", "-32001"]
//	phrases  = ["in progress"]
//
//	[timeout]
//	codes   = ["E_TIMEOUT"]
//	phrases = ["timed out"]
//
// A missing key keeps the default list, an empty list clears it.
type policyFile struct {
	Busy struct {
		Statuses *[]int    `toml:"statuses"`
		Codes    *[]string `toml:"codes"`
		Phrases  *[]string `toml:"phrases"`
	} `toml:"busy"`
	Timeout struct {
		Codes   *[]string `toml:"codes"`
		Phrases *[]string `toml:"phrases"`
	} `toml:"timeout"`
}

// LoadPolicy reads a classifier policy from a TOML file. An empty path
// returns the default policy.
func LoadPolicy(path string) (rpc.Policy, error) {
	policy := rpc.DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	var file policyFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return policy, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return policy, fmt.Errorf("unknown policy key %q in %s", undecoded[0].String(), path)
	}
	return file.apply(policy)
}

// ParsePolicy is LoadPolicy for an in-memory document.
func ParsePolicy(doc string) (rpc.Policy, error) {
	var file policyFile
	meta, err := toml.Decode(doc, &file)
	if err != nil {
		return rpc.DefaultPolicy(), fmt.Errorf("failed to parse policy: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return rpc.DefaultPolicy(), fmt.Errorf("unknown policy key %q", undecoded[0].String())
	}
	return file.apply(rpc.DefaultPolicy())
}

func (f policyFile) apply(policy rpc.Policy) (rpc.Policy, error) {
	if f.Busy.Statuses != nil {
		for _, status := range *f.Busy.Statuses {
			if status < 400 || status > 599 || http.StatusText(status) == "" {
				return policy, fmt.Errorf("busy status %d is not an HTTP error status", status)
			}
		}
		policy.BusyStatuses = *f.Busy.Statuses
	}
	if f.Busy.Codes != nil {
		policy.BusyCodes = *f.Busy.Codes
	}
	if f.Busy.Phrases != nil {
		policy.BusyPhrases = *f.Busy.Phrases
	}
	if f.Timeout.Codes != nil {
		policy.TimeoutCodes = *f.Timeout.Codes
	}
	if f.Timeout.Phrases != nil {
		policy.TimeoutPhrases = *f.Timeout.Phrases
	}
	return policy, nil
}
