package intent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hedaas-code/neoagent/internal/intent"
)

func TestResolveTimeExpressionTomorrowMorning(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC) // a Friday
	start, end, ok := intent.ResolveTimeExpression("tomorrow morning", now)
	require.True(t, ok)
	require.Equal(t, time.August, start.Month())
	require.Equal(t, 1, start.Day())
	require.Equal(t, 9, start.Hour())
	require.Equal(t, 2*time.Hour, end.Sub(start))
}

func TestResolveTimeExpressionChineseDayAfterTomorrow(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	start, _, ok := intent.ResolveTimeExpression("后天下午", now)
	require.True(t, ok)
	require.Equal(t, 2, start.Day())
	require.Equal(t, 14, start.Hour())
}

func TestResolveTimeExpressionExplicitHour(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	start, _, ok := intent.ResolveTimeExpression("明天3点", now)
	require.True(t, ok)
	require.Equal(t, 3, start.Hour())
}

func TestResolveTimeExpressionUnrecognisedReturnsNotOK(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	_, _, ok := intent.ResolveTimeExpression("whenever works", now)
	require.False(t, ok)
}

func TestDetectScheduleIntentNeutralWithoutRouter(t *testing.T) {
	result := intent.DetectScheduleIntent(context.Background(), nil, "let's meet tomorrow", "Aria", time.Now())
	require.Equal(t, intent.ScheduleTypeNone, result.ScheduleType)
	require.False(t, result.HasScheduleIntent)
}

func TestIsQueryScheduleKeywordHeuristic(t *testing.T) {
	require.True(t, intent.IsQuerySchedule("what's my schedule today?"))
	require.True(t, intent.IsQuerySchedule("你今天有什么安排"))
	require.False(t, intent.IsQuerySchedule("tell me a joke"))
}

func TestHasScheduleKeywordsCoversQueryAndPlanMaking(t *testing.T) {
	require.True(t, intent.HasScheduleKeywords("what's my schedule today?"))
	require.True(t, intent.HasScheduleKeywords("let's meet tomorrow at 3"))
	require.True(t, intent.HasScheduleKeywords("明天下午一起去图书馆吧"))
	require.False(t, intent.HasScheduleKeywords("tell me a joke"))
}

func TestQueryPrecisionDefaultsLowWithoutRouter(t *testing.T) {
	require.False(t, intent.QueryPrecision(context.Background(), nil, "what do you see?"))
	require.True(t, intent.QueryPrecision(context.Background(), nil, "describe exactly what's on the table"))
}
