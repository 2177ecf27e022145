package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbmodels "github.com/goassist-bot/goassist/assistbot/database/models"
	"github.com/goassist-bot/goassist/backend/services"
)

func postLog(t *testing.T, env *testEnv, session *http.Cookie, configID string, body map[string]any) {
	t.Helper()
	resp, _ := env.do(t, "POST", "/api/bot-configs/"+configID+"/logs", body, session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestBotLogsCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "111", "alice")
	config := env.createConfig(t, session, "guild-1")

	postLog(t, env, session, config.ID, map[string]any{
		"commandName": "support", "username": "member", "channelName": "help", "success": true, "responseTime": 120,
	})
	postLog(t, env, session, config.ID, map[string]any{
		"commandName": "review", "username": "member", "channelName": "help", "success": true,
	})

	resp, body := env.do(t, "GET", "/api/bot-configs/"+config.ID+"/logs", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs []*dbmodels.CommandLog
	require.NoError(t, json.Unmarshal(body.Data, &logs))
	require.Len(t, logs, 2)

	// limit applies
	resp, body = env.do(t, "GET", "/api/bot-configs/"+config.ID+"/logs?limit=1", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body.Data, &logs))
	assert.Len(t, logs, 1)
}

func TestBotLogsFuzzySearch(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "111", "alice")
	config := env.createConfig(t, session, "guild-1")

	postLog(t, env, session, config.ID, map[string]any{
		"commandName": "support", "username": "carol", "channelName": "help", "success": true,
	})
	postLog(t, env, session, config.ID, map[string]any{
		"commandName": "help", "username": "dave", "channelName": "general", "success": true,
	})

	resp, body := env.do(t, "GET", "/api/bot-configs/"+config.ID+"/logs?search=carol", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs []*dbmodels.CommandLog
	require.NoError(t, json.Unmarshal(body.Data, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "carol", logs[0].Username)

	// No match comes back as an empty array, not null.
	resp, body = env.do(t, "GET", "/api/bot-configs/"+config.ID+"/logs?search=zzzzzz", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(body.Data))
}

func TestBotLogValidation(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "111", "alice")
	config := env.createConfig(t, session, "guild-1")

	resp, body := env.do(t, "POST", "/api/bot-configs/"+config.ID+"/logs", map[string]any{
		"username": "member",
	}, session)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, services.CodeValidation, body.Error.Code)
}

func TestBotReviewsCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "111", "alice")
	config := env.createConfig(t, session, "guild-1")

	resp, _ := env.do(t, "POST", "/api/bot-configs/"+config.ID+"/reviews", map[string]any{
		"rating": 5, "feedback": "great",
	}, session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, "GET", "/api/bot-configs/"+config.ID+"/reviews", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reviews []*dbmodels.UserReview
	require.NoError(t, json.Unmarshal(body.Data, &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
	// Review without a username falls back to the session user.
	assert.Equal(t, "alice", reviews[0].Username)
}

func TestBotReviewRatingValidation(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "111", "alice")
	config := env.createConfig(t, session, "guild-1")

	for _, rating := range []int{0, 6, -1} {
		resp, body := env.do(t, "POST", "/api/bot-configs/"+config.ID+"/reviews", map[string]any{
			"rating": rating,
		}, session)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.NotNil(t, body.Error)
		assert.Equal(t, services.CodeValidation, body.Error.Code)
	}
}

func TestBotStats(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "111", "alice")
	config := env.createConfig(t, session, "guild-1")

	postLog(t, env, session, config.ID, map[string]any{
		"commandName": "support", "username": "a", "channelName": "c", "success": true, "responseTime": 100,
	})
	postLog(t, env, session, config.ID, map[string]any{
		"commandName": "support", "username": "b", "channelName": "c", "success": true, "responseTime": 200,
	})
	postLog(t, env, session, config.ID, map[string]any{
		"commandName": "help", "username": "c", "channelName": "c", "success": false,
	})

	resp, body := env.do(t, "GET", "/api/bot-configs/"+config.ID+"/stats", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		TotalCommands      int     `json:"totalCommands"`
		SuccessfulCommands int     `json:"successfulCommands"`
		AvgResponseTime    float64 `json:"avgResponseTime"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, 3, stats.TotalCommands)
	assert.Equal(t, 2, stats.SuccessfulCommands)
	assert.InDelta(t, 150.0, stats.AvgResponseTime, 0.001)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "111", "alice")
	first := env.createConfig(t, session, "guild-1")
	env.createConfig(t, session, "guild-2")

	resp, _ := env.do(t, "POST", "/api/bot-configs/"+first.ID+"/start", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	postLog(t, env, session, first.ID, map[string]any{
		"commandName": "support", "username": "a", "channelName": "c", "success": true,
	})
	postLog(t, env, session, first.ID, map[string]any{
		"commandName": "support", "username": "a", "channelName": "c", "success": false,
	})

	resp, body := env.do(t, "GET", "/api/dashboard/stats", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		TotalBots     int `json:"totalBots"`
		ActiveBots    int `json:"activeBots"`
		TotalCommands int `json:"totalCommands"`
		SuccessRate   int `json:"successRate"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	assert.Equal(t, 2, stats.TotalBots)
	assert.Equal(t, 1, stats.ActiveBots)
	assert.Equal(t, 2, stats.TotalCommands)
	assert.Equal(t, 50, stats.SuccessRate)
}

func TestRecentActivityAcrossConfigs(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "111", "alice")
	first := env.createConfig(t, session, "guild-1")
	second := env.createConfig(t, session, "guild-2")

	postLog(t, env, session, first.ID, map[string]any{
		"commandName": "support", "username": "a", "channelName": "c", "success": true,
	})
	postLog(t, env, session, second.ID, map[string]any{
		"commandName": "help", "username": "b", "channelName": "c", "success": true,
	})

	// Someone else's logs never show up.
	stranger := env.login(t, "222", "bob")
	theirs := env.createConfig(t, stranger, "guild-3")
	postLog(t, env, stranger, theirs.ID, map[string]any{
		"commandName": "secret", "username": "bob", "channelName": "c", "success": true,
	})

	resp, body := env.do(t, "GET", "/api/recent-activity", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs []*dbmodels.CommandLog
	require.NoError(t, json.Unmarshal(body.Data, &logs))
	require.Len(t, logs, 2)
	for _, log := range logs {
		assert.NotEqual(t, "secret", log.CommandName)
	}
}
