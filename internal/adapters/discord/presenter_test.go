package discord

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jose-valero/roster-bot/internal/domain"
)

func TestPresenter_RememberForgetsStoppedEvents(t *testing.T) {
	p := NewPresenter(nil, nil, nil)

	ev := rosterEvent(domain.KindSolo, 5, "Alpha")
	ev.Version = 3
	p.remember(ev)
	assert.Equal(t, int64(3), p.shown[ev.EventID])

	ev.Version = 4
	ev.Status = domain.EventStopped
	p.remember(ev)
	_, ok := p.shown[ev.EventID]
	assert.False(t, ok)
	assert.Empty(t, p.shown)
}
