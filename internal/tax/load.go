package tax

import (
	"fmt"
	"os"

	"github.com/govalues/decimal"
	"gopkg.in/yaml.v3"
)

// bracketFile is the YAML layout of a bracket table. Omitting up_to marks
// the unbounded final bracket.
//
//	brackets:
//	  - up_to: "9875"
//	    rate: "0.10"
//	  - rate: "0.37"
type bracketFile struct {
	Brackets []struct {
		UpTo string `yaml:"up_to"`
		Rate string `yaml:"rate"`
	} `yaml:"brackets"`
}

// LoadSchedule reads and validates a bracket table from path.
func LoadSchedule(path string) (Schedule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("read bracket file: %w", err)
	}
	return ParseSchedule(b)
}

// ParseSchedule decodes a YAML bracket table.
func ParseSchedule(b []byte) (Schedule, error) {
	var f bracketFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Schedule{}, fmt.Errorf("decode bracket file: %w", err)
	}
	s := Schedule{Brackets: make([]Bracket, 0, len(f.Brackets))}
	for i, raw := range f.Brackets {
		rate, err := decimal.Parse(raw.Rate)
		if err != nil {
			return Schedule{}, fmt.Errorf("bracket %d: rate: %w", i, err)
		}
		br := Bracket{Rate: rate, Unbounded: raw.UpTo == ""}
		if !br.Unbounded {
			if br.UpTo, err = decimal.Parse(raw.UpTo); err != nil {
				return Schedule{}, fmt.Errorf("bracket %d: up_to: %w", i, err)
			}
		}
		s.Brackets = append(s.Brackets, br)
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}
