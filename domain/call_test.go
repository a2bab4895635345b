package domain

import "testing"

func TestCloneSharesNothing(t *testing.T) {
	sid := "CA1"
	call := &Call{
		ID:      "c1",
		CallSid: &sid,
		Phrases: []*Phrase{{Transcript: "gift card", Words: []Word{{Word: "gift"}}}},
		ScamResult: &ScamResult{
			IsScam:     true,
			Matches:    []string{"gift card"},
			Categories: []string{"payment"},
		},
	}

	clone := call.Clone()

	*call.CallSid = "CA2"
	call.Phrases[0].Transcript = "changed"
	call.Phrases[0].Words[0].Word = "changed"
	call.ScamResult.IsScam = false
	call.ScamResult.Matches[0] = "changed"
	call.ScamResult.Categories[0] = "changed"
	call.Status = CallFailed

	if *clone.CallSid != "CA1" || clone.Status != "" {
		t.Errorf("scalar fields leaked: %+v", clone)
	}
	if clone.Phrases[0].Transcript != "gift card" || clone.Phrases[0].Words[0].Word != "gift" {
		t.Errorf("phrases leaked: %+v", clone.Phrases[0])
	}
	if !clone.ScamResult.IsScam || clone.ScamResult.Matches[0] != "gift card" || clone.ScamResult.Categories[0] != "payment" {
		t.Errorf("scam result leaked: %+v", clone.ScamResult)
	}
}

func TestCloneNil(t *testing.T) {
	var call *Call
	if call.Clone() != nil {
		t.Error("expected nil clone")
	}
	if (&Call{}).Clone().ScamResult != nil {
		t.Error("expected nil scam result to stay nil")
	}
}
