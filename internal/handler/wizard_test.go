package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWizardSessionExpiry(t *testing.T) {
	fresh := &wizardSession{started: time.Now()}
	assert.False(t, fresh.expired())

	stale := &wizardSession{started: time.Now().Add(-wizardTTL - time.Minute)}
	assert.True(t, stale.expired())
}
