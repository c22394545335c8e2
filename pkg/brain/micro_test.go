package brain

import (
	"math/rand"
	"testing"
)

func TestMicroChainSamplesTrainedSentence(t *testing.T) {
	micro := NewMicroChain(2)
	micro.Train("Die Katze schläft auf dem Sofa")

	out := micro.Sample(160, 0.55, rand.New(rand.NewSource(1)))
	if out != "die katze schläft auf dem sofa" {
		t.Fatalf("unexpected sample: %q", out)
	}
}

func TestMicroChainKeepsStopwords(t *testing.T) {
	micro := NewMicroChain(2)
	micro.Train("und dann war da noch was")

	out := micro.Sample(160, 0.55, rand.New(rand.NewSource(1)))
	if out == "" {
		t.Fatalf("stopword-only sentence must still train the micro model")
	}
}

func TestMicroChainEmptyModel(t *testing.T) {
	micro := NewMicroChain(2)
	if out := micro.Sample(160, 0.55, rand.New(rand.NewSource(1))); out != "" {
		t.Fatalf("empty model must sample nothing, got %q", out)
	}

	micro.Train("zu kurz")
	if out := micro.Sample(160, 0.55, rand.New(rand.NewSource(1))); out != "" {
		t.Fatalf("short sentences must not train, got %q", out)
	}
}

func TestMicroChainOrderClamp(t *testing.T) {
	micro := NewMicroChain(99)
	if micro.order != 4 {
		t.Fatalf("order must clamp to 4, got %d", micro.order)
	}
	micro = NewMicroChain(0)
	if micro.order != 2 {
		t.Fatalf("order must clamp to 2, got %d", micro.order)
	}
}
