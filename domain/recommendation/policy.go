package recommendation

import "fmt"

// ExclusionPolicy decides which exercises multi_hop drops because the anchor already knows them
type ExclusionPolicy string

const (
	// ExcludePerformed drops exercises with any Performed edge from the anchor
	ExcludePerformed ExclusionPolicy = "performed"
	// ExcludeNone keeps every reachable exercise
	ExcludeNone ExclusionPolicy = "none"
)

// ParseExclusionPolicy reads a policy name; the empty string selects ExcludePerformed
func ParseExclusionPolicy(s string) (ExclusionPolicy, error) {
	switch ExclusionPolicy(s) {
	case "", ExcludePerformed:
		return ExcludePerformed, nil
	case ExcludeNone:
		return ExcludeNone, nil
	default:
		return "", fmt.Errorf("unknown exclusion policy %q", s)
	}
}

// SimilarityDirection decides which stored SimilarTo edges count for an anchor
type SimilarityDirection string

const (
	// SimilarityBoth reads (anchor, *) and (*, anchor)
	SimilarityBoth SimilarityDirection = "both"
	// SimilarityOutgoing reads (anchor, *) only, for stores that materialize both directions
	SimilarityOutgoing SimilarityDirection = "outgoing"
)

// ParseSimilarityDirection reads a direction name; the empty string selects SimilarityBoth
func ParseSimilarityDirection(s string) (SimilarityDirection, error) {
	switch SimilarityDirection(s) {
	case "", SimilarityBoth:
		return SimilarityBoth, nil
	case SimilarityOutgoing:
		return SimilarityOutgoing, nil
	default:
		return "", fmt.Errorf("unknown similarity direction %q", s)
	}
}
