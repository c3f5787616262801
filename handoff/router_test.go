package handoff

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aseangps/agenthub/protocol"
	"github.com/aseangps/agenthub/session"
)

// recordResponder records the prompts it receives and returns a canned
// answer.
type recordResponder struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
}

func (r *recordResponder) Respond(_ context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.answer, r.err
}

func (r *recordResponder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}

func (r *recordResponder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.prompts) == 0 {
		return ""
	}
	return r.prompts[len(r.prompts)-1]
}

// scriptClassifier returns preset targets in order, then keeps the
// current domain.
type scriptClassifier struct {
	targets []string
	err     error
	calls   int
}

func (c *scriptClassifier) Classify(_ context.Context, _, currentDomain string, _ []string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if len(c.targets) == 0 {
		return currentDomain, nil
	}
	target := c.targets[0]
	c.targets = c.targets[1:]
	return target, nil
}

func testSpecialists() ([]Specialist, *recordResponder, *recordResponder) {
	general := &recordResponder{answer: "general answer"}
	billing := &recordResponder{answer: "billing answer"}
	specialists := []Specialist{
		{Domain: "general", Description: "everyday questions", Responder: general},
		{Domain: "billing", Description: "invoices and refunds", Responder: billing},
	}
	return specialists, general, billing
}

func TestNewRouter_Validation(t *testing.T) {
	store := session.NewInMemoryStore()

	_, err := NewRouter(nil, &scriptClassifier{}, AllTurns, store)
	require.Error(t, err)

	dup := []Specialist{
		{Domain: "general", Responder: &recordResponder{}},
		{Domain: "general", Responder: &recordResponder{}},
	}
	_, err = NewRouter(dup, &scriptClassifier{}, AllTurns, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate specialist domain")
}

func TestRouter_Route_DefaultDomain(t *testing.T) {
	specialists, general, billing := testSpecialists()
	router, err := NewRouter(specialists, &scriptClassifier{}, AllTurns, session.NewInMemoryStore())
	require.NoError(t, err)

	res, err := router.Route(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "general answer", res.Answer)
	assert.Equal(t, "general", res.Domain)
	assert.False(t, res.Transferred)

	// Exactly one specialist invocation per turn.
	assert.Equal(t, 1, general.calls())
	assert.Zero(t, billing.calls())
}

func TestRouter_Route_TransferCarriesContextWindow(t *testing.T) {
	specialists, general, billing := testSpecialists()
	store := session.NewInMemoryStore()
	classifier := &scriptClassifier{targets: []string{"general", "general", "billing"}}
	router, err := NewRouter(specialists, classifier, Window(2), store)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = router.Route(ctx, "s1", "first question")
	require.NoError(t, err)
	_, err = router.Route(ctx, "s1", "second question")
	require.NoError(t, err)

	res, err := router.Route(ctx, "s1", "why was I charged twice?")
	require.NoError(t, err)
	assert.True(t, res.Transferred)
	assert.Equal(t, "billing", res.Domain)
	assert.Equal(t, "general", res.FromDomain)
	// Four turns exist; the window admits exactly the last two.
	assert.Equal(t, 2, res.ContextTurns)

	prompt := billing.last()
	assert.Contains(t, prompt, "transferred from the general specialist")
	assert.Contains(t, prompt, "second question")
	assert.NotContains(t, prompt, "first question")
	assert.Contains(t, prompt, "User: why was I charged twice?")

	assert.Equal(t, 2, general.calls())
	assert.Equal(t, 1, billing.calls())
}

func TestRouter_Route_TransferWithNoTurnsWindow(t *testing.T) {
	specialists, _, billing := testSpecialists()
	store := session.NewInMemoryStore()
	classifier := &scriptClassifier{targets: []string{"general", "billing"}}
	router, err := NewRouter(specialists, classifier, NoTurns, store)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = router.Route(ctx, "s1", "hi there")
	require.NoError(t, err)

	res, err := router.Route(ctx, "s1", "billing question")
	require.NoError(t, err)
	assert.True(t, res.Transferred)
	assert.Zero(t, res.ContextTurns)
	// With an empty window the specialist sees only the raw prompt.
	assert.Equal(t, "billing question", billing.last())
}

func TestRouter_Route_TransferWithAllTurnsWindow(t *testing.T) {
	specialists, _, billing := testSpecialists()
	classifier := &scriptClassifier{targets: []string{"general", "general", "billing"}}
	router, err := NewRouter(specialists, classifier, AllTurns, session.NewInMemoryStore())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = router.Route(ctx, "s1", "first")
	require.NoError(t, err)
	_, err = router.Route(ctx, "s1", "second")
	require.NoError(t, err)

	res, err := router.Route(ctx, "s1", "charge me")
	require.NoError(t, err)
	assert.Equal(t, 4, res.ContextTurns)
	assert.Contains(t, billing.last(), "first")
	assert.Contains(t, billing.last(), "second")
}

func TestRouter_Route_DomainPersistsAcrossTurns(t *testing.T) {
	specialists, general, billing := testSpecialists()
	store := session.NewInMemoryStore()
	classifier := &scriptClassifier{targets: []string{"billing"}}
	router, err := NewRouter(specialists, classifier, NoTurns, store)
	require.NoError(t, err)

	ctx := context.Background()
	res, err := router.Route(ctx, "s1", "refund please")
	require.NoError(t, err)
	assert.True(t, res.Transferred)

	// The follow-up classifies to the (new) current domain: billing keeps
	// the conversation without another transfer.
	res, err = router.Route(ctx, "s1", "thanks, one more thing")
	require.NoError(t, err)
	assert.Equal(t, "billing", res.Domain)
	assert.False(t, res.Transferred)
	assert.Equal(t, 2, billing.calls())
	assert.Zero(t, general.calls())
}

func TestRouter_Route_ClassifierFailureKeepsDomain(t *testing.T) {
	specialists, general, _ := testSpecialists()
	classifier := &scriptClassifier{err: errors.New("model down")}
	router, err := NewRouter(specialists, classifier, AllTurns, session.NewInMemoryStore())
	require.NoError(t, err)

	res, err := router.Route(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "general", res.Domain)
	assert.False(t, res.Transferred)
	assert.Equal(t, 1, general.calls())
}

func TestRouter_Route_UnknownTargetKeepsDomain(t *testing.T) {
	specialists, general, _ := testSpecialists()
	classifier := &scriptClassifier{targets: []string{"made-up-domain"}}
	router, err := NewRouter(specialists, classifier, AllTurns, session.NewInMemoryStore())
	require.NoError(t, err)

	res, err := router.Route(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "general", res.Domain)
	assert.Equal(t, 1, general.calls())
}

func TestRouter_Route_SpecialistErrorFailsTurn(t *testing.T) {
	broken := &recordResponder{err: errors.New("upstream 500")}
	specialists := []Specialist{{Domain: "general", Responder: broken}}
	router, err := NewRouter(specialists, &scriptClassifier{}, AllTurns, session.NewInMemoryStore())
	require.NoError(t, err)

	_, err = router.Route(context.Background(), "s1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 500")
}

func TestRouter_Route_PersistsTurns(t *testing.T) {
	specialists, _, _ := testSpecialists()
	store := session.NewInMemoryStore()
	router, err := NewRouter(specialists, &scriptClassifier{}, AllTurns, store)
	require.NoError(t, err)

	_, err = router.Route(context.Background(), "s1", "hello")
	require.NoError(t, err)

	sess, err := store.Get("s1")
	require.NoError(t, err)
	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "general", history[1].Agent)
}

func TestKeywordClassifier(t *testing.T) {
	c := &KeywordClassifier{Keywords: map[string][]string{
		"billing":   {"invoice", "charge", "refund"},
		"technical": {"error", "crash"},
	}}
	domains := []string{"general", "billing", "technical"}

	got, err := c.Classify(context.Background(), "I was charged twice, need a refund", "general", domains)
	require.NoError(t, err)
	assert.Equal(t, "billing", got)

	got, err = c.Classify(context.Background(), "nice weather today", "general", domains)
	require.NoError(t, err)
	assert.Equal(t, "general", got)
}

func TestRouterAgent_Run(t *testing.T) {
	specialists, _, _ := testSpecialists()
	store := session.NewInMemoryStore()
	classifier := &scriptClassifier{targets: []string{"billing"}}
	router, err := NewRouter(specialists, classifier, Window(2), store)
	require.NoError(t, err)

	agent := NewRouterAgent(router, "s1")

	var mu sync.Mutex
	var events []protocol.Event
	sink := protocol.SinkFunc(func(_ context.Context, ev protocol.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	require.NoError(t, agent.Run(context.Background(), "refund please", sink))

	require.Len(t, events, 2)
	assert.Equal(t, protocol.EventAgentMessage, events[0].Type)
	assert.True(t, strings.Contains(events[0].Content, "transferred to billing"))
	assert.Equal(t, "general", events[0].Data["from_domain"])
	assert.Equal(t, protocol.EventFinal, events[1].Type)
	assert.Equal(t, "billing answer", events[1].Content)
	assert.Equal(t, "billing", events[1].Agent)
}

func TestRenderContext(t *testing.T) {
	assert.Empty(t, RenderContext("general", nil))

	turns := []session.Turn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Agent: "general", Content: "hi"},
	}
	out := RenderContext("general", turns)
	assert.Contains(t, out, "transferred from the general specialist")
	assert.Contains(t, out, "user: hello")
	assert.Contains(t, out, "general: hi")
}
