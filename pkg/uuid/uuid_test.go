// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package uuid_test

import (
	"testing"

	googleuuid "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/pkg/uuid"
)

/*
TestNew_Version verifies entity IDs are time-ordered v7 values.
*/
func TestNew_Version(t *testing.T) {
	parsed, err := googleuuid.Parse(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, googleuuid.Version(7), parsed.Version())
}

/*
TestNewV4_Version verifies message IDs are fully-random v4 values.
*/
func TestNewV4_Version(t *testing.T) {
	parsed, err := googleuuid.Parse(uuid.NewV4())
	require.NoError(t, err)
	assert.Equal(t, googleuuid.Version(4), parsed.Version())
}

/*
TestIsValid verifies both generated versions pass and garbage fails.
*/
func TestIsValid(t *testing.T) {
	assert.True(t, uuid.IsValid(uuid.New()))
	assert.True(t, uuid.IsValid(uuid.NewV4()))
	assert.False(t, uuid.IsValid("not-a-uuid"))
	assert.False(t, uuid.IsValid(""))
}
