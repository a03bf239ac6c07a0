package poet

import (
	"context"
	"fmt"
	"log"

	"poetloop/domain"
	"poetloop/store"
)

// maxRawResponseChars bounds how much of the raw model output is kept for
// debugging.
const maxRawResponseChars = 5000

// Runner drives one chat exchange to a final reply. Satisfied by
// *chat.Orchestrator.
type Runner interface {
	Run(ctx context.Context, exchange domain.Exchange) (string, error)
}

// Engine advances the poem sequence one cycle at a time. Each cycle consumes
// the previous cycle's handoff prompt and commits the new poem together with
// the updated poet state.
type Engine struct {
	store  store.Store
	runner Runner
	scorer Scorer
}

// NewEngine creates an evolution engine. scorer may be nil to skip scoring.
func NewEngine(st store.Store, runner Runner, scorer Scorer) *Engine {
	return &Engine{store: st, runner: runner, scorer: scorer}
}

// Evolve runs one evolution cycle at the given timestamp. On the first call
// ever, state is seeded from the genesis prompt in memory; nothing is
// persisted until the cycle commits, so a failed generation leaves the store
// untouched.
func (e *Engine) Evolve(ctx context.Context, now int64) (*domain.PoemCycle, error) {
	state, err := e.store.GetPoetState(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading poet state: %w", err)
	}
	if state == nil {
		state = &domain.PoetState{
			GenesisPrompt: GenesisPrompt,
			CurrentCycle:  0,
			TotalPoems:    0,
		}
	}

	prompt := state.GenesisPrompt
	previousPoem := ""
	current, err := e.store.GetCurrentPoem(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading current poem: %w", err)
	}
	if current != nil {
		prompt = current.NextPrompt
		previousPoem = current.Poem
	}

	cycleNumber := state.CurrentCycle + 1
	exchange := domain.Exchange{
		domain.SystemMessage{Content: buildSystemPrompt(cycleNumber, previousPoem)},
		domain.UserMessage{Content: prompt},
	}

	raw, err := e.runner.Run(ctx, exchange)
	if err != nil {
		return nil, fmt.Errorf("cycle %d generation: %w", cycleNumber, err)
	}

	gen, err := parseGeneration(raw)
	if err != nil {
		return nil, fmt.Errorf("cycle %d: %w", cycleNumber, err)
	}

	cycle := &domain.PoemCycle{
		CycleNumber: cycleNumber,
		Title:       gen.Title,
		Poem:        gen.Poem,
		NextPrompt:  gen.NextPrompt,
		CreatedAt:   now,
		RawResponse: truncateRunes(raw, maxRawResponseChars),
	}

	if e.scorer != nil {
		score, err := e.scorer.Score(gen.Poem)
		if err != nil {
			log.Printf("WARN: scoring cycle %d failed: %v", cycleNumber, err)
		} else {
			cycle.BukowskiStyleScore = &score
		}
	}

	newState := &domain.PoetState{
		GenesisPrompt: state.GenesisPrompt,
		CurrentCycle:  cycleNumber,
		TotalPoems:    state.TotalPoems + 1,
		LastUpdated:   now,
	}

	if err := e.store.CommitCycle(ctx, cycle, newState); err != nil {
		return nil, fmt.Errorf("committing cycle %d: %w", cycleNumber, err)
	}
	return cycle, nil
}

// Reset clears all poem cycles and poet state. Reports whether anything was
// removed.
func (e *Engine) Reset(ctx context.Context) (bool, error) {
	return e.store.ResetPoet(ctx)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
