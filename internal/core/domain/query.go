package domain

// AnyTag is the wildcard accepted for genre and mood constraints.
const AnyTag = "any"

// CollabMarker appears in every collaborative-match explanation. The
// rank-fusion stage detects collaborative records by this content, so it
// must never appear in rule-based explanations.
const CollabMarker = "because you liked similar titles"

// RuleQueryKind discriminates the structured query shapes the rule
// evaluator answers. Queries are built as values, never as concatenated
// query text.
type RuleQueryKind int

const (
	// AttributeMatch filters the full catalog by genre/mood/age.
	AttributeMatch RuleQueryKind = iota
	// PoolMatch is AttributeMatch with a hard candidate-pool restriction.
	PoolMatch
	// CollaborativeMatch finds items liked by users sharing a like with
	// the requesting user.
	CollaborativeMatch
)

type RuleQuery struct {
	Kind   RuleQueryKind
	Genre  string
	Mood   string
	Age    int
	Pool   *CandidatePool
	UserID int64
}

func NewAttributeMatch(genre, mood string, age int) RuleQuery {
	return RuleQuery{Kind: AttributeMatch, Genre: genre, Mood: mood, Age: age}
}

func NewPoolMatch(genre, mood string, age int, pool *CandidatePool) RuleQuery {
	return RuleQuery{Kind: PoolMatch, Genre: genre, Mood: mood, Age: age, Pool: pool}
}

func NewCollaborativeMatch(userID int64, age int) RuleQuery {
	return RuleQuery{Kind: CollaborativeMatch, UserID: userID, Age: age}
}

// RuleMatch is a single rule-evaluator result tuple.
type RuleMatch struct {
	ID          int64
	Title       string
	Explanation string
	Score       float64
}
