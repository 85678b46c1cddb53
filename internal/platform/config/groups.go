package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GroupRules are the exclusions of one chat.
type GroupRules struct {
	ExceptSenders []int64  `yaml:"except_senders"`
	ExceptTypes   []string `yaml:"except_types"`
	ExceptWords   []string `yaml:"except_words"`
}

type groupsFile struct {
	Groups map[int64]GroupRules `yaml:"groups"`
}

// LoadGroups reads per-chat exclusions from a YAML file. An empty path yields no rules.
//
//	groups:
//	  -1001234567890:
//	    except_senders: [42]
//	    except_types: [Sticker]
//	    except_words: ["#noecho"]
func LoadGroups(path string) (map[int64]GroupRules, error) {
	if path == "" {
		return map[int64]GroupRules{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups file: %w", err)
	}

	return ParseGroups(data)
}

// ParseGroups decodes the groups YAML document.
func ParseGroups(data []byte) (map[int64]GroupRules, error) {
	var f groupsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse groups file: %w", err)
	}

	if f.Groups == nil {
		return map[int64]GroupRules{}, nil
	}

	return f.Groups, nil
}
