package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeffersonAlvarez16/leoncito/internal/picks"
)

func pickAt(start time.Time) picks.Pick {
	return picks.Pick{
		ID:       42,
		Title:    "Real Madrid vs Barcelona",
		StartsAt: start,
		Selections: []picks.Selection{
			{HomeTeam: "Real Madrid", AwayTeam: "Barcelona", Market: "Más de 2.5 goles"},
		},
	}
}

func TestPlanAllChannels(t *testing.T) {
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour) // 12:00

	plan := Plan(pickAt(start), now, DefaultPreferences("u1"))
	require.Len(t, plan, 3)

	assert.Equal(t, Channel30Min, plan[0].Channel)
	assert.Equal(t, start.Add(-30*time.Minute), plan[0].At) // 11:30
	assert.Equal(t, Channel5Min, plan[1].Channel)
	assert.Equal(t, start.Add(-5*time.Minute), plan[1].At) // 11:55
	assert.Equal(t, ChannelLive, plan[2].Channel)
	assert.Equal(t, start, plan[2].At) // 12:00
}

func TestPlanSkipsElapsedOffsets(t *testing.T) {
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	// 10 minutes out: the 30-minute offset already passed.
	plan := Plan(pickAt(now.Add(10*time.Minute)), now, DefaultPreferences("u1"))
	require.Len(t, plan, 2)
	assert.Equal(t, Channel5Min, plan[0].Channel)
	assert.Equal(t, ChannelLive, plan[1].Channel)

	// 2 minutes out: only the kickoff alert remains.
	plan = Plan(pickAt(now.Add(2*time.Minute)), now, DefaultPreferences("u1"))
	require.Len(t, plan, 1)
	assert.Equal(t, ChannelLive, plan[0].Channel)
}

func TestPlanEmptyForStartedPick(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 5, 0, 0, time.UTC)

	// Kicked off 5 minutes ago.
	assert.Nil(t, Plan(pickAt(now.Add(-5*time.Minute)), now, DefaultPreferences("u1")))

	// Kicking off exactly now: "strictly future" excludes it.
	assert.Nil(t, Plan(pickAt(now), now, DefaultPreferences("u1")))
}

func TestPlanEmptyForZeroStart(t *testing.T) {
	now := time.Now()
	assert.Nil(t, Plan(pickAt(time.Time{}), now, DefaultPreferences("u1")))
}

func TestPlanMasterSwitchOverridesChannels(t *testing.T) {
	now := time.Now()
	prefs := DefaultPreferences("u1")
	prefs.Master = false

	assert.Nil(t, Plan(pickAt(now.Add(time.Hour)), now, prefs))
}

func TestPlanFiltersDisabledChannels(t *testing.T) {
	now := time.Now()
	prefs := DefaultPreferences("u1")
	prefs.Before30Min = false
	prefs.Live = false

	plan := Plan(pickAt(now.Add(time.Hour)), now, prefs)
	require.Len(t, plan, 1)
	assert.Equal(t, Channel5Min, plan[0].Channel)
}

func TestPlanIsPure(t *testing.T) {
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	p := pickAt(now.Add(time.Hour))
	prefs := DefaultPreferences("u1")

	first := Plan(p, now, prefs)
	second := Plan(p, now, prefs)
	assert.Equal(t, first, second)
}

func TestDedupTagDeterministic(t *testing.T) {
	assert.Equal(t, "bet-42-30min", DedupTag(42, Channel30Min))
	assert.Equal(t, "bet-42-live", DedupTag(42, ChannelLive))

	n := ScheduledNotification{BetID: 42, Channel: Channel5Min}
	assert.Equal(t, "bet-42-5min", n.DedupTag())
}

func TestRenderContent(t *testing.T) {
	p := pickAt(time.Now().Add(time.Hour))

	title, body := RenderContent(p, Channel30Min)
	assert.Equal(t, "⚽ Pick disponible en 30 min", title)
	assert.Equal(t, "Real Madrid vs Barcelona - Más de 2.5 goles", body)

	title, body = RenderContent(p, Channel5Min)
	assert.Equal(t, "🔥 ¡Pick empezando ya!", title)
	assert.Contains(t, body, "Solo quedan 5 minutos")

	title, body = RenderContent(p, ChannelLive)
	assert.Equal(t, "🚨 ¡Partido en vivo!", title)
	assert.Contains(t, body, "El pick está activo")

	// No selections: generic market label.
	bare := picks.Pick{ID: 1, Title: "Combinada del día", StartsAt: p.StartsAt}
	_, body = RenderContent(bare, Channel30Min)
	assert.Equal(t, "Combinada del día - Nueva apuesta", body)
}
