package cities

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeContent is an in-memory ContentSource over a fixed city list.
type fakeContent struct {
	cities []string
	err    error
}

func (f *fakeContent) Exists(_ context.Context, name string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, c := range f.cities {
		if strings.EqualFold(c, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContent) StartingWith(_ context.Context, letter string, excluding []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	excluded := make(map[string]struct{}, len(excluding))
	for _, name := range excluding {
		excluded[strings.ToLower(name)] = struct{}{}
	}

	var names []string
	for _, c := range f.cities {
		if !strings.EqualFold(FirstLetter(c), letter) {
			continue
		}
		if _, ok := excluded[strings.ToLower(c)]; ok {
			continue
		}
		names = append(names, c)
	}
	return names, nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"lowercase", "москва", "Москва"},
		{"uppercase", "МОСКВА", "Москва"},
		{"surrounding whitespace", "  тверь  ", "Тверь"},
		{"hyphenated name", "санкт-петербург", "Санкт-Петербург"},
		{"multi word name", "нижний новгород", "Нижний Новгород"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.raw))
		})
	}
}

func TestRequiredLetter(t *testing.T) {
	tests := []struct {
		name     string
		city     string
		expected string
	}{
		{"plain ending", "Москва", "А"},
		{"soft sign skipped", "Тверь", "Р"},
		{"short i and yery skipped", "Грозный", "Н"},
		{"yery skipped", "Алматы", "Т"},
		{"hyphen stripped", "Санкт-Петербург", "Г"},
		{"space stripped", "Нижний Новгород", "Д"},
		{"all skippable falls back to last", "Ый", "Й"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RequiredLetter(tt.city))
		})
	}
}

func TestFirstLetter(t *testing.T) {
	assert.Equal(t, "М", FirstLetter("москва"))
	assert.Equal(t, "Т", FirstLetter("  Тверь"))
	assert.Equal(t, "", FirstLetter("   "))
}

func TestGame_Submit_AcceptAndCounter(t *testing.T) {
	content := &fakeContent{cities: []string{"Новгород", "Дмитров"}}
	g := New(content, "Тюмень", nil)

	require.Equal(t, "Тюмень", g.CurrentCity())
	require.Equal(t, "Н", g.RequiredNext())

	res, err := g.Submit(context.Background(), "новгород")
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinue, res.Outcome)
	assert.Equal(t, "Новгород", res.PlayerCity)
	assert.Equal(t, "Дмитров", res.BotCity)
	assert.Equal(t, "В", res.NextLetter)
	assert.False(t, res.Terminal)

	assert.Equal(t, "Дмитров", g.CurrentCity())
	assert.Equal(t, 1, g.Score())
	assert.Equal(t, 1, g.BotScore())
	assert.Equal(t, 2, g.Attempts())
}

func TestGame_Submit_WinWhenNoCounterMove(t *testing.T) {
	content := &fakeContent{cities: []string{"Новгород"}}
	g := New(content, "Тюмень", nil)

	res, err := g.Submit(context.Background(), "Новгород")
	require.NoError(t, err)
	assert.Equal(t, OutcomeWin, res.Outcome)
	assert.True(t, res.Win)
	assert.True(t, res.Terminal)
	assert.Equal(t, "Д", res.NextLetter)
	assert.True(t, g.Win())
	assert.Equal(t, 1, g.Score())
}

func TestGame_Submit_NotFound(t *testing.T) {
	content := &fakeContent{cities: []string{"Москва"}}
	g := New(content, "Тюмень", nil)

	res, err := g.Submit(context.Background(), "Нарния")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.True(t, res.Terminal)
	assert.Equal(t, 0, g.Score())

	_, err = g.Submit(context.Background(), "Москва")
	assert.ErrorIs(t, err, ErrFinished)
}

func TestGame_Submit_AlreadyUsed(t *testing.T) {
	content := &fakeContent{cities: []string{"Тюмень", "Новгород"}}
	g := New(content, "Тюмень", nil)

	// The seed city is marked used from the start.
	res, err := g.Submit(context.Background(), "тюмень")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyUsed, res.Outcome)
	assert.True(t, res.Terminal)
}

func TestGame_Submit_WrongLetter(t *testing.T) {
	content := &fakeContent{cities: []string{"Москва"}}
	g := New(content, "Тюмень", nil)

	res, err := g.Submit(context.Background(), "Москва")
	require.NoError(t, err)
	assert.Equal(t, OutcomeWrongLetter, res.Outcome)
	assert.Equal(t, "Н", res.ExpectedLetter)
	assert.Equal(t, "М", res.GivenLetter)
	assert.True(t, res.Terminal)
}

func TestGame_Submit_NameTooShort(t *testing.T) {
	content := &fakeContent{cities: []string{"Новгород"}}
	g := New(content, "Тюмень", nil)

	_, err := g.Submit(context.Background(), "Ош")
	assert.ErrorIs(t, err, ErrNameTooShort)

	// The rejected input consumed nothing; the game continues.
	assert.False(t, g.Terminal())
	assert.Equal(t, 0, g.Attempts())
}

func TestGame_Submit_ContentError(t *testing.T) {
	content := &fakeContent{err: errors.New("connection lost")}
	g := New(content, "Тюмень", nil)

	_, err := g.Submit(context.Background(), "Новгород")
	require.Error(t, err)

	// A lookup failure is not a game outcome; the game is still live.
	assert.False(t, g.Terminal())
}

// staleContent ignores the excluding list, so the engine's own
// re-check against the used set is what keeps repeats out.
type staleContent struct {
	fakeContent
}

func (s *staleContent) StartingWith(ctx context.Context, letter string, _ []string) ([]string, error) {
	return s.fakeContent.StartingWith(ctx, letter, nil)
}

func TestGame_BotSkipsUsedCandidates(t *testing.T) {
	content := &staleContent{fakeContent{cities: []string{"Абакан", "Анапа", "Находка"}}}
	g := New(content, "Абакан", nil)

	// Абакан is used as the seed; the bot must pass over it even
	// though the content source still offers it.
	res, err := g.Submit(context.Background(), "Находка")
	require.NoError(t, err)
	require.Equal(t, OutcomeContinue, res.Outcome)
	assert.Equal(t, "Анапа", res.BotCity)
}

func TestGame_WinWhenOnlyStaleCandidates(t *testing.T) {
	content := &staleContent{fakeContent{cities: []string{"Абакан", "Находка"}}}
	g := New(content, "Абакан", nil)

	// The only А-candidate left is the used seed, so after the
	// re-check the bot has no legal move.
	res, err := g.Submit(context.Background(), "Находка")
	require.NoError(t, err)
	assert.Equal(t, OutcomeWin, res.Outcome)
	assert.True(t, g.Win())
}
