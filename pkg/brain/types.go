package brain

import "time"

// Message is one ingested chat message after cleaning. Content is
// stored in cleaned form. ReplyToID is empty when the message was not
// an explicit reply.
type Message struct {
	ID        string
	Content   string
	AuthorID  string
	ChannelID string
	ReplyToID string
	TS        int64
}

// Pair links the canonical key of a parent message to the cleaned
// text of a reply observed for it.
type Pair struct {
	Reply string
	TS    int64
}

// Transition is one observed (prefix, next) edge of the n-gram chain.
type Transition struct {
	Next  string
	Count int64
}

// Candidate is a retrieval result: a stored parent key and its
// cosine similarity to the query.
type Candidate struct {
	Key   string
	Score float64
}

// Stats summarizes the learned state, for the status command and
// maintenance logging.
type Stats struct {
	Messages    int64
	Pairs       int64
	ParentKeys  int64
	Transitions int64
	Vocabulary  int64
}

// Options configures the reply engine. Zero values fall back to the
// defaults below; out-of-range values are clamped by withDefaults.
type Options struct {
	Order               int
	Lowercase           bool
	DecayHalfLifeMS     int64
	MaxPairsPerKey      int
	MaxVocabulary       int
	MaxLen              int
	MinLen              int
	Temperature         float64
	SimilarityThreshold float64
	TopK                int
	PreferRecentMS      int64
	SteerToInput        bool
	SanitizeMentions    bool
	MergeWindowMS       int64
	LookbackN           int
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		Order:               2,
		Lowercase:           true,
		DecayHalfLifeMS:     (60 * 24 * time.Hour).Milliseconds(),
		MaxPairsPerKey:      50,
		MaxVocabulary:       20000,
		MaxLen:              160,
		MinLen:              5,
		Temperature:         0.55,
		SimilarityThreshold: 0.18,
		TopK:                6,
		PreferRecentMS:      (7 * 24 * time.Hour).Milliseconds(),
		SteerToInput:        true,
		SanitizeMentions:    true,
		MergeWindowMS:       5000,
		LookbackN:           5,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Order == 0 {
		o.Order = def.Order
	}
	if o.Order < 2 {
		o.Order = 2
	}
	if o.Order > 4 {
		o.Order = 4
	}
	if o.DecayHalfLifeMS <= 0 {
		o.DecayHalfLifeMS = def.DecayHalfLifeMS
	}
	if o.MaxPairsPerKey <= 0 {
		o.MaxPairsPerKey = def.MaxPairsPerKey
	}
	if o.MaxVocabulary <= 0 {
		o.MaxVocabulary = def.MaxVocabulary
	}
	if o.MaxLen <= 0 {
		o.MaxLen = def.MaxLen
	}
	if o.MinLen <= 0 {
		o.MinLen = def.MinLen
	}
	if o.Temperature == 0 {
		o.Temperature = def.Temperature
	}
	if o.Temperature < 0 {
		o.Temperature = 0
	}
	if o.Temperature > 1 {
		o.Temperature = 1
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = def.SimilarityThreshold
	}
	if o.TopK <= 0 {
		o.TopK = def.TopK
	}
	if o.PreferRecentMS <= 0 {
		o.PreferRecentMS = def.PreferRecentMS
	}
	if o.MergeWindowMS <= 0 {
		o.MergeWindowMS = def.MergeWindowMS
	}
	if o.LookbackN <= 0 {
		o.LookbackN = def.LookbackN
	}
	return o
}
