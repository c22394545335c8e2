package brain

import (
	"context"
	"math"
	"sort"

	"github.com/plauderbot/plauderbot/pkg/textnorm"
)

// retriever scores stored parent keys against a query with TF-IDF
// weighted cosine similarity. Document frequency is counted by
// substring containment over distinct keys, which makes short terms
// cheap (high df, low idf) and rare long terms expensive.
type retriever struct {
	store *Store
	norm  *textnorm.Normalizer
}

// nearestKeys returns up to topK keys with positive similarity to
// the query, best first. A query with no weighted terms matches
// nothing.
func (r *retriever) nearestKeys(ctx context.Context, query string, topK int) ([]Candidate, error) {
	qToks := r.norm.Tokenize(query)
	if len(qToks) == 0 {
		return nil, nil
	}

	idfCache := map[string]float64{}
	qVec, err := r.weightedVector(ctx, qToks, idfCache)
	if err != nil {
		return nil, err
	}
	qNorm := vecNorm(qVec)
	if qNorm == 0 {
		return nil, nil
	}

	keys, err := r.store.DistinctParentKeys(ctx)
	if err != nil {
		return nil, err
	}

	out := []Candidate{}
	for _, key := range keys {
		score, err := r.cosineAgainst(ctx, qVec, qNorm, key, idfCache)
		if err != nil {
			return nil, err
		}
		if score > 0 {
			out = append(out, Candidate{Key: key, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// similarity scores two raw texts against each other, used to rank
// lookback candidates during ingestion. Zero when either side has no
// weighted terms.
func (r *retriever) similarity(ctx context.Context, a, b string) (float64, error) {
	idfCache := map[string]float64{}
	aVec, err := r.weightedVector(ctx, r.norm.Tokenize(a), idfCache)
	if err != nil {
		return 0, err
	}
	aNorm := vecNorm(aVec)
	if aNorm == 0 {
		return 0, nil
	}
	return r.cosineAgainst(ctx, aVec, aNorm, b, idfCache)
}

// cosineAgainst computes the cosine between a prepared query vector
// and the TF-IDF vector of doc. Zero-norm documents score zero.
func (r *retriever) cosineAgainst(ctx context.Context, qVec map[string]float64, qNorm float64, doc string, idfCache map[string]float64) (float64, error) {
	dTf := termFreq(r.norm.Tokenize(doc))
	dot := 0.0
	dSq := 0.0
	for term, tf := range dTf {
		idf, err := r.idf(ctx, term, idfCache)
		if err != nil {
			return 0, err
		}
		if idf <= 0 {
			continue
		}
		w := tf * idf
		dSq += w * w
		if qv, ok := qVec[term]; ok {
			dot += qv * w
		}
	}
	denom := math.Sqrt(dSq) * qNorm
	if denom == 0 {
		return 0, nil
	}
	return dot / denom, nil
}

func (r *retriever) weightedVector(ctx context.Context, toks []string, idfCache map[string]float64) (map[string]float64, error) {
	vec := map[string]float64{}
	for term, tf := range termFreq(toks) {
		idf, err := r.idf(ctx, term, idfCache)
		if err != nil {
			return nil, err
		}
		if idf <= 0 {
			continue
		}
		vec[term] = tf * idf
	}
	return vec, nil
}

// idf is ln((total+1)/(df+0.5)) with df counted by substring
// containment; a term seen in no key gets zero and drops out.
func (r *retriever) idf(ctx context.Context, term string, cache map[string]float64) (float64, error) {
	if v, ok := cache[term]; ok {
		return v, nil
	}
	df, err := r.store.CountKeysContaining(ctx, term)
	if err != nil {
		return 0, err
	}
	v := 0.0
	if df > 0 {
		total, err := r.store.CountDistinctKeys(ctx)
		if err != nil {
			return 0, err
		}
		v = math.Log(float64(total+1) / (float64(df) + 0.5))
	}
	cache[term] = v
	return v, nil
}

// termFreq maps each distinct token to its sublinear frequency
// 1+ln(count).
func termFreq(tokens []string) map[string]float64 {
	counts := map[string]float64{}
	for _, t := range tokens {
		counts[t]++
	}
	for t, n := range counts {
		counts[t] = 1 + math.Log(n)
	}
	return counts
}

func vecNorm(vec map[string]float64) float64 {
	s := 0.0
	for _, v := range vec {
		s += v * v
	}
	return math.Sqrt(s)
}
