package annotation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Likelihood is the ordered explicit-content severity scale. Values compare by
// Rank, never by name.
type Likelihood int

const (
	LikelihoodUnspecified Likelihood = iota
	VeryUnlikely
	Unlikely
	Possible
	Likely
	VeryLikely
)

var likelihoodNames = [...]string{
	LikelihoodUnspecified: "LIKELIHOOD_UNSPECIFIED",
	VeryUnlikely:          "VERY_UNLIKELY",
	Unlikely:              "UNLIKELY",
	Possible:              "POSSIBLE",
	Likely:                "LIKELY",
	VeryLikely:            "VERY_LIKELY",
}

// Rank orders likelihoods from 0 (unspecified) to 5 (very likely). Unknown
// values rank as unspecified.
func (l Likelihood) Rank() int {
	if l < LikelihoodUnspecified || l > VeryLikely {
		return 0
	}
	return int(l)
}

// Max returns the higher ranked of l and other.
func (l Likelihood) Max(other Likelihood) Likelihood {
	if other.Rank() > l.Rank() {
		return other
	}
	return l
}

func (l Likelihood) String() string {
	if l < LikelihoodUnspecified || l > VeryLikely {
		return likelihoodNames[LikelihoodUnspecified]
	}
	return likelihoodNames[l]
}

// ParseLikelihood accepts the enum names (with or without the LIKELIHOOD_
// prefix for unspecified) case-insensitively.
func ParseLikelihood(value string) (Likelihood, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch normalized {
	case "", "UNSPECIFIED":
		return LikelihoodUnspecified, nil
	}
	for i, name := range likelihoodNames {
		if name == normalized {
			return Likelihood(i), nil
		}
	}
	return LikelihoodUnspecified, fmt.Errorf("unknown likelihood %q", value)
}

func (l Likelihood) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts the enum name or its numeric value.
func (l *Likelihood) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		parsed, err := ParseLikelihood(name)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode likelihood: %w", err)
	}
	if n < int(LikelihoodUnspecified) || n > int(VeryLikely) {
		return fmt.Errorf("likelihood %d out of range", n)
	}
	*l = Likelihood(n)
	return nil
}
