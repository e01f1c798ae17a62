package assistant

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranhealth/drai/internal/history"
	"github.com/pranhealth/drai/internal/idempotency"
)

func newTestPipeline(src *fakeSource, store *memHistory) *Pipeline {
	guard := idempotency.NewGuard(idempotency.NewMemoryStore(), nil)
	classifier := NewClassifier(nil, "", nil)
	retriever := NewRetriever(src, nil, nil)
	generator := NewGenerator(nil, "", nil, nil, nil)
	var hist history.Store
	if store != nil {
		hist = store
	}
	return NewPipeline(guard, classifier, retriever, generator, hist, nil, nil)
}

func TestPipelineGreeting(t *testing.T) {
	p := newTestPipeline(&fakeSource{}, &memHistory{})

	text, sent := p.Handle(context.Background(), Inbound{SenderID: "user1", Message: "Hello"})
	require.True(t, sent)
	assert.Contains(t, text, "Dr. AI")
}

func TestPipelineChestPainScenario(t *testing.T) {
	src := &fakeSource{doctors: testDoctors()}
	p := newTestPipeline(src, &memHistory{})

	text, sent := p.Handle(context.Background(), Inbound{SenderID: "user1", Message: "I have chest pain"})
	require.True(t, sent)
	assert.Contains(t, text, "911", "emergency framing comes first")
	assert.Contains(t, text, "Michael Chen", "cardiology doctors are listed")
	assert.Equal(t, "cardiology", src.lastSpecialty, "classification drives the retrieval filter")
}

func TestPipelineDuplicateInboundSuppressed(t *testing.T) {
	p := newTestPipeline(&fakeSource{}, &memHistory{})
	ctx := context.Background()

	text, sent := p.Handle(ctx, Inbound{SenderID: "user1", Message: "yes"})
	require.True(t, sent)
	require.NotEmpty(t, text)

	text, sent = p.Handle(ctx, Inbound{SenderID: "user1", Message: "yes"})
	assert.False(t, sent, "same event inside the re-entrancy window")
	assert.Empty(t, text, "a suppressed inbound produces no output at all")
}

func TestPipelineDuplicateResponseSuppressed(t *testing.T) {
	p := newTestPipeline(&fakeSource{}, nil)
	ctx := context.Background()

	// Different inbound texts that template to the identical response.
	_, sent := p.Handle(ctx, Inbound{SenderID: "user1", Message: "thanks"})
	require.True(t, sent)
	text, sent := p.Handle(ctx, Inbound{SenderID: "user1", Message: "thanks a lot"})
	assert.False(t, sent, "identical response content inside the outbound window")
	assert.Empty(t, text)
}

func TestPipelineAdapterFailureDegrades(t *testing.T) {
	src := &fakeSource{doctorsErr: errSourceDown}
	p := newTestPipeline(src, &memHistory{})

	text, sent := p.Handle(context.Background(), Inbound{SenderID: "user1", Message: "find me a doctor"})
	require.True(t, sent, "a failing adapter never kills the pipeline")
	assert.Contains(t, text, "Dr. ", "template degrades to the sample roster")
}

func TestPipelineAppendsBothTurns(t *testing.T) {
	store := &memHistory{}
	p := newTestPipeline(&fakeSource{}, store)

	_, sent := p.Handle(context.Background(), Inbound{SenderID: "user1", Message: "Hello"})
	require.True(t, sent)
	require.Len(t, store.turns, 2)
	assert.True(t, store.turns[0].IsUser)
	assert.False(t, store.turns[1].IsUser)
	assert.Equal(t, "Hello", store.turns[0].Text)
}

func TestPipelineHistoryFailureIsBestEffort(t *testing.T) {
	store := &memHistory{appendErr: errSourceDown}
	p := newTestPipeline(&fakeSource{}, store)

	text, sent := p.Handle(context.Background(), Inbound{SenderID: "user1", Message: "Hello"})
	assert.True(t, sent, "history failures never block the response")
	assert.NotEmpty(t, text)
}

func TestPipelineConcurrentSenders(t *testing.T) {
	p := newTestPipeline(&fakeSource{}, nil)
	ctx := context.Background()

	const senders = 16
	var wg sync.WaitGroup
	results := make([]bool, senders)
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, sent := p.Handle(ctx, Inbound{
				SenderID: "user" + string(rune('a'+i)),
				Message:  "Hello",
			})
			results[i] = sent
		}(i)
	}
	wg.Wait()
	for i, sent := range results {
		assert.True(t, sent, "sender %d must get a reply", i)
	}
}
