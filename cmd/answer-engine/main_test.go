// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretDefault(t *testing.T) {
	old := loadedSecrets
	defer func() { loadedSecrets = old }()
	loadedSecrets = map[string]string{"brave-api-key": "bk_secret"}

	// Explicit config wins over the secret file.
	assert.Equal(t, "bk_config", secretDefault("brave-api-key", "bk_config"))
	// Without config the secret file fills in.
	assert.Equal(t, "bk_secret", secretDefault("brave-api-key", ""))
	// Neither configured nor on disk yields empty.
	assert.Equal(t, "", secretDefault("agent-api-key", ""))
}
