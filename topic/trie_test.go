package topic

import "testing"

func TestMemoryTrie_SubscribeMatches(t *testing.T) {
	topics := NewMemoryTrie()

	if topics.Matches("sdcp/status/000001") {
		t.Error("Matches should be false before Subscribe")
	}

	if err := topics.Subscribe("sdcp/status/000001"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if !topics.Matches("sdcp/status/000001") {
		t.Error("Matches should be true after Subscribe")
	}
	if topics.Matches("sdcp/status/000002") {
		t.Error("Matches should stay false for an unrelated topic")
	}
}

func TestMemoryTrie_Unsubscribe(t *testing.T) {
	topics := NewMemoryTrie()
	topics.Subscribe("sdcp/status/000001")
	topics.Unsubscribe("sdcp/status/000001")

	if topics.Matches("sdcp/status/000001") {
		t.Error("Matches should be false after Unsubscribe")
	}
}

func TestMemoryTrie_NoWildcardExpansion(t *testing.T) {
	topics := NewMemoryTrie()
	topics.Subscribe("sdcp/status/+")

	if topics.Matches("sdcp/status/000001") {
		t.Error("a literal '+' subscription must not match other topics — this broker never expands wildcards")
	}
}
