// Copyright (c) 2026 Pulse. All rights reserved.
// Author: dev@pulsechat.app

package pagination_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsechat/pulse/pkg/pagination"
)

/*
TestFromRequest_Defaults verifies missing and garbage parameters fall back to
the defaults.
*/
func TestFromRequest_Defaults(t *testing.T) {
	request := httptest.NewRequest("GET", "/messages", nil)
	params := pagination.FromRequest(request)

	assert.Equal(t, pagination.DefaultPage, params.Page)
	assert.Equal(t, pagination.DefaultLimit, params.Limit)

	request = httptest.NewRequest("GET", "/messages?page=abc&limit=-5", nil)
	params = pagination.FromRequest(request)

	assert.Equal(t, pagination.DefaultPage, params.Page)
	assert.Equal(t, pagination.DefaultLimit, params.Limit)
}

/*
TestFromRequest_Clamping verifies excessive limits are clamped.
*/
func TestFromRequest_Clamping(t *testing.T) {
	request := httptest.NewRequest("GET", "/messages?page=3&limit=5000", nil)
	params := pagination.FromRequest(request)

	assert.Equal(t, 3, params.Page)
	assert.Equal(t, pagination.DefaultLimit, params.Limit)
}

/*
TestParams_Offset verifies SQL offset derivation from page and limit.
*/
func TestParams_Offset(t *testing.T) {
	assert.Equal(t, 0, pagination.Params{Page: 1, Limit: 50}.Offset())
	assert.Equal(t, 50, pagination.Params{Page: 2, Limit: 50}.Offset())
	assert.Equal(t, 40, pagination.Params{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 0, pagination.Params{Page: 0, Limit: 50}.Offset())
}

/*
TestNewMeta verifies total page math including partial last pages.
*/
func TestNewMeta(t *testing.T) {
	meta := pagination.NewMeta(2, 20, 41)

	assert.Equal(t, 2, meta.Page)
	assert.Equal(t, 20, meta.Limit)
	assert.Equal(t, 41, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	assert.Equal(t, 0, pagination.NewMeta(1, 20, 0).TotalPages)
	assert.Equal(t, 1, pagination.NewMeta(1, 20, 20).TotalPages)
}

/*
TestMeta_WireKeys verifies the metadata serializes under the documented
page/page_size/total_items/total_pages keys.
*/
func TestMeta_WireKeys(t *testing.T) {
	raw, err := json.Marshal(pagination.NewMeta(2, 20, 41))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, float64(2), decoded["page"])
	assert.Equal(t, float64(20), decoded["page_size"])
	assert.Equal(t, float64(41), decoded["total_items"])
	assert.Equal(t, float64(3), decoded["total_pages"])
}
